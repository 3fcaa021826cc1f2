// Package pipeline drives raw trip records through normalization and
// rule evaluation in fixed-size batches.
package pipeline

import (
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/frotaviva/trip-compliance/internal/core/model"
	"github.com/frotaviva/trip-compliance/internal/core/observability"
	"github.com/frotaviva/trip-compliance/internal/rules"
)

const DefaultBatchSize = 100

type Processor struct {
	engine    rules.Engine
	batchSize int
	logger    *slog.Logger
}

func New(engine rules.Engine, batchSize int, logger *slog.Logger) *Processor {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{engine: engine, batchSize: batchSize, logger: logger}
}

// Run evaluates every record and returns the snapshot plus the rule
// totals. The snapshot preserves upstream order and only exists once
// every batch has completed; there is no partial result and no
// cancellation mid-run. Between batches the processor yields so a large
// import does not monopolize the scheduler.
func (p *Processor) Run(raw []model.TripRecord, q model.ImportQuery, now time.Time) (model.Snapshot, model.RuleTotals) {
	enriched := make([]model.EnrichedTrip, 0, len(raw))

	for start := 0; start < len(raw); start += p.batchSize {
		end := start + p.batchSize
		if end > len(raw) {
			end = len(raw)
		}

		for _, rec := range raw[start:end] {
			rec = normalize(rec)
			enriched = append(enriched, model.EnrichedTrip{
				TripRecord:       rec,
				ComplianceResult: p.engine.Evaluate(rec, now),
			})
		}

		observability.IncImportBatch()
		// scheduling hint only; results do not depend on it
		runtime.Gosched()
	}

	totals := tally(enriched)
	observability.AddImportTrips(len(enriched))
	observability.AddRuleHits("delayed", totals.Delayed)
	observability.AddRuleHits("early", totals.Early)
	observability.AddRuleHits("missed_schedule", totals.MissedSchedules)
	observability.AddRuleHits("wrong_line", totals.WrongLines)

	p.logger.Debug("import processed",
		"records", len(enriched),
		"batches", (len(raw)+p.batchSize-1)/p.batchSize)

	return model.Snapshot{
		Trips:     enriched,
		CreatedAt: now,
		Query:     q,
	}, totals
}

// normalize applies field fallbacks once, before rule evaluation. A
// record missing a field proceeds with the fallback rather than
// aborting the import.
func normalize(rec model.TripRecord) model.TripRecord {
	if rec.ExpectedLineID == 0 {
		rec.ExpectedLineID = rec.ActualLineID
	}
	if rec.ActualLineID == 0 {
		rec.ActualLineID = rec.ExpectedLineID
	}

	rec.ScheduledStart = strings.TrimSpace(rec.ScheduledStart)
	rec.ActualStart = strings.TrimSpace(rec.ActualStart)
	rec.Driver = strings.TrimSpace(rec.Driver)
	rec.ScheduledVehicle = strings.TrimSpace(rec.ScheduledVehicle)
	rec.OperatedVehicle = strings.TrimSpace(rec.OperatedVehicle)

	if rec.OperatedVehicle == "" {
		rec.OperatedVehicle = rec.ScheduledVehicle
	}
	return rec
}

func tally(trips []model.EnrichedTrip) model.RuleTotals {
	var t model.RuleTotals
	for _, tr := range trips {
		if tr.Delayed {
			t.Delayed++
		}
		if tr.Early {
			t.Early++
		}
		if tr.MissedSchedule {
			t.MissedSchedules++
		}
		if tr.WrongLine {
			t.WrongLines++
		}
	}
	return t
}
