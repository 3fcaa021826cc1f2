// Package service orchestrates the import and list operations: result
// cache in front, fetch + pipeline + snapshot behind.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frotaviva/trip-compliance/internal/cache"
	"github.com/frotaviva/trip-compliance/internal/core/model"
	"github.com/frotaviva/trip-compliance/internal/core/observability"
	"github.com/frotaviva/trip-compliance/internal/pipeline"
	"github.com/frotaviva/trip-compliance/internal/query"
	"github.com/frotaviva/trip-compliance/internal/snapshot"
)

// Fetcher is the upstream read capability; the retry policy lives
// behind it.
type Fetcher interface {
	Fetch(ctx context.Context, q model.ImportQuery) ([]model.TripRecord, error)
}

type Service struct {
	fetcher Fetcher
	proc    *pipeline.Processor
	snaps   *snapshot.Store
	store   cache.Interface
	queries *query.Engine
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func New(f Fetcher, proc *pipeline.Processor, snaps *snapshot.Store, store cache.Interface, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: f,
		proc:    proc,
		snaps:   snaps,
		store:   store,
		queries: query.NewEngine(),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the evaluation clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Import runs the full pipeline for q, replacing the current snapshot
// on success. A repeat of the same request within the TTL window is
// served from the result cache without touching the upstream. Any
// failure before the snapshot replacement leaves the previous snapshot
// current and caches nothing.
//
// Two concurrent misses for the same key both pay the full fetch; the
// cache does not coalesce requests.
func (s *Service) Import(ctx context.Context, q model.ImportQuery) (model.ImportResponse, error) {
	start := s.now()
	key := cache.ImportKey(q)

	if cached, ok, err := s.store.Get(key); err != nil {
		return model.ImportResponse{}, fmt.Errorf("import cache lookup: %w", err)
	} else if ok {
		var resp model.ImportResponse
		if uerr := json.Unmarshal(cached, &resp); uerr == nil {
			observability.IncCacheHit(cache.NamespaceImport)
			s.logger.Info("import cache hit", "date", q.Date, "total", resp.Total)
			return resp, nil
		}
		// undecodable entry: treat as a miss and overwrite below
		s.logger.Warn("discarding undecodable import cache entry", "key", key)
	}
	observability.IncCacheMiss(cache.NamespaceImport)

	raw, err := s.fetcher.Fetch(ctx, q)
	if err != nil {
		return model.ImportResponse{}, err
	}

	snap, totals := s.proc.Run(raw, q, s.now())
	s.snaps.Replace(snap)

	resp := model.ImportResponse{
		Message:   fmt.Sprintf("%d viagens importadas", len(snap.Trips)),
		Total:     len(snap.Trips),
		Totals:    totals,
		ElapsedMs: s.now().Sub(start).Milliseconds(),
		Trips:     snap.Trips,
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return model.ImportResponse{}, fmt.Errorf("encode import response: %w", err)
	}
	if err := s.store.Set(key, payload, s.ttl); err != nil {
		// the snapshot is already current; the cache store being down is
		// still a dependency failure the caller must see
		return model.ImportResponse{}, fmt.Errorf("import cache store: %w", err)
	}

	s.logger.Info("import complete",
		"date", q.Date,
		"total", resp.Total,
		"delayed", totals.Delayed,
		"furos", totals.MissedSchedules,
		"wrong_line", totals.WrongLines,
		"elapsed_ms", resp.ElapsedMs)
	return resp, nil
}

// List serves one filtered page of the current snapshot. It never
// mutates the snapshot store; an empty store yields an empty page.
func (s *Service) List(_ context.Context, q model.ListQuery) (model.ListResponse, error) {
	start := s.now()
	key := cache.ListKey(q)

	if cached, ok, err := s.store.Get(key); err != nil {
		return model.ListResponse{}, fmt.Errorf("list cache lookup: %w", err)
	} else if ok {
		var resp model.ListResponse
		if uerr := json.Unmarshal(cached, &resp); uerr == nil {
			observability.IncCacheHit(cache.NamespaceList)
			return resp, nil
		}
		s.logger.Warn("discarding undecodable list cache entry", "key", key)
	}
	observability.IncCacheMiss(cache.NamespaceList)

	snap, _ := s.snaps.Current()
	page := s.queries.Query(snap, q)

	resp := model.ListResponse{
		Total:      page.Total,
		ElapsedMs:  s.now().Sub(start).Milliseconds(),
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
		Trips:      page.Items,
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return model.ListResponse{}, fmt.Errorf("encode list response: %w", err)
	}
	if err := s.store.Set(key, payload, s.ttl); err != nil {
		return model.ListResponse{}, fmt.Errorf("list cache store: %w", err)
	}
	return resp, nil
}
