// Package rules evaluates one trip record against the punctuality and
// itinerary compliance rules. Evaluation is pure: no I/O, no shared state.
package rules

import (
	"time"

	"github.com/frotaviva/trip-compliance/internal/core/model"
)

const (
	// DefaultDelayTolerance is how late a start may be before the trip
	// counts as delayed.
	DefaultDelayTolerance = 3 * time.Minute
	// DefaultMissedScheduleGrace is how long after the scheduled start a
	// trip may stay unstarted before it counts as a missed schedule.
	DefaultMissedScheduleGrace = 15 * time.Minute
)

type Engine struct {
	delayTolerance      time.Duration
	missedScheduleGrace time.Duration
}

func New(delayTolerance, missedScheduleGrace time.Duration) Engine {
	if delayTolerance <= 0 {
		delayTolerance = DefaultDelayTolerance
	}
	if missedScheduleGrace <= 0 {
		missedScheduleGrace = DefaultMissedScheduleGrace
	}
	return Engine{
		delayTolerance:      delayTolerance,
		missedScheduleGrace: missedScheduleGrace,
	}
}

// Evaluate computes the compliance flags for one trip. A blank or
// malformed actual start makes the delay flags false and arms the
// missed-schedule check against now.
func (e Engine) Evaluate(trip model.TripRecord, now time.Time) model.ComplianceResult {
	var res model.ComplianceResult

	scheduled, schedOK := model.ParseTimestamp(trip.ScheduledStart)
	actual, actualOK := model.ParseTimestamp(trip.ActualStart)

	if schedOK && actualOK {
		diff := actual.Sub(scheduled)
		res.DelayedAtStart = diff.Truncate(time.Minute) > e.delayTolerance
		res.Delayed = diff > e.delayTolerance
		// Same condition as Delayed: the production rule set ships the
		// early flag this way.
		// TODO: confirm the intended early-departure condition with operations.
		res.Early = diff > e.delayTolerance
	}

	if schedOK && !actualOK {
		res.MissedSchedule = now.Sub(scheduled) > e.missedScheduleGrace
	}

	wrong := trip.ExpectedLineID != trip.ActualLineID
	res.WrongLine = wrong
	// Identical to WrongLine by the same rule-set decision as Early.
	res.MissedTrip = wrong

	return res
}
