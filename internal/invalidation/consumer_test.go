package invalidation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/frotaviva/trip-compliance/internal/core/config"
)

func configStub() config.InvalidationCfg {
	return config.InvalidationCfg{
		Enabled: true,
		Brokers: "localhost:9092",
		Topic:   "trip-schedule-changes",
		GroupID: "trip-compliance-cache",
	}
}

func validEvent() []byte {
	return []byte(`{"version":1,"op":"schedule_change","day":"10-01-2025","ts":"2025-01-10T08:00:00Z","source":"scheduler"}`)
}

func TestEvent_Validate(t *testing.T) {
	ok := Event{Version: 1, Op: "schedule_change", TS: time.Now()}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []Event{
		{Version: 2, Op: "schedule_change", TS: time.Now()},
		{Version: 1, Op: "delete", TS: time.Now()},
		{Version: 1, Op: "schedule_change"},
	}
	for i, ev := range cases {
		if err := ev.Validate(); err == nil {
			t.Errorf("case %d accepted: %+v", i, ev)
		}
	}
}

type flushRecorder struct {
	mu       sync.Mutex
	prefixes []string
	err      error
}

func (f *flushRecorder) Get(string) ([]byte, bool, error)          { return nil, false, nil }
func (f *flushRecorder) Set(string, []byte, time.Duration) error   { return nil }
func (f *flushRecorder) FlushPrefix(prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

func TestProcessOne_FlushesBothNamespaces(t *testing.T) {
	store := &flushRecorder{}
	c := NewConsumer(configStub(), nil, store)

	msg := &sarama.ConsumerMessage{Value: validEvent()}
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(store.prefixes) != 2 {
		t.Fatalf("prefixes=%v want import: and list:", store.prefixes)
	}
	if store.prefixes[0] != "import:" || store.prefixes[1] != "list:" {
		t.Fatalf("prefixes=%v", store.prefixes)
	}
}

func TestProcessOne_SkipsBadEvents(t *testing.T) {
	store := &flushRecorder{}
	c := NewConsumer(configStub(), nil, store)

	for _, raw := range []string{`not json`, `{"version":9,"op":"schedule_change","ts":"2025-01-10T08:00:00Z"}`} {
		msg := &sarama.ConsumerMessage{Value: []byte(raw)}
		if err := c.ProcessOne(context.Background(), msg); err != nil {
			t.Fatalf("bad event should be skipped, got %v", err)
		}
	}
	if len(store.prefixes) != 0 {
		t.Fatalf("flushed on bad events: %v", store.prefixes)
	}
}

// a cache failure must surface so the message is redelivered
func TestProcessOne_CacheFailureReturned(t *testing.T) {
	store := &flushRecorder{err: errors.New("redis down")}
	c := NewConsumer(configStub(), nil, store)

	msg := &sarama.ConsumerMessage{Value: validEvent()}
	if err := c.ProcessOne(context.Background(), msg); err == nil {
		t.Fatal("expected flush failure to propagate")
	}
}
