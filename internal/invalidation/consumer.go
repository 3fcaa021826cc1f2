package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/frotaviva/trip-compliance/internal/cache"
	"github.com/frotaviva/trip-compliance/internal/core/config"
)

type Consumer struct {
	cfg    config.InvalidationCfg
	logger *slog.Logger
	store  cache.Interface
}

func NewConsumer(cfg config.InvalidationCfg, logger *slog.Logger, store cache.Interface) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, logger: logger, store: store}
}

// Start joins the consumer group and processes events until ctx is
// done. Consume errors are logged and retried, not fatal.
func (c *Consumer) Start(ctx context.Context) error {
	if c.store == nil {
		return errors.New("invalidation: missing cache store")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(splitCSV(c.cfg.Brokers), c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single schedule-change message. A malformed
// event is logged and skipped; a cache failure is returned so the
// message is redelivered.
func (c *Consumer) ProcessOne(_ context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Warn("skipping undecodable invalidation event", "err", err, "offset", msg.Offset)
		return nil
	}
	if err := ev.Validate(); err != nil {
		c.logger.Warn("skipping invalid invalidation event", "err", err, "offset", msg.Offset)
		return nil
	}

	if err := c.store.FlushPrefix(cache.NamespaceImport + ":"); err != nil {
		return fmt.Errorf("flush import namespace: %w", err)
	}
	if err := c.store.FlushPrefix(cache.NamespaceList + ":"); err != nil {
		return fmt.Errorf("flush list namespace: %w", err)
	}

	c.logger.Info("result cache flushed", "op", ev.Op, "day", ev.Day, "source", ev.Source)
	return nil
}

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

type groupHandler struct {
	process messageProcessor
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("claim context done: %w", ctx.Err())
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return fmt.Errorf("process failed (topic=%s, part=%d, off=%d): %w",
					msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
