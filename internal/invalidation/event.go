// Package invalidation listens for schedule-change events and flushes
// the result cache so the next request recomputes. The pipeline itself
// never depends on it; without the consumer, entries simply expire.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Day     string    `json:"day,omitempty"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch strings.TrimSpace(e.Op) {
	case "schedule_change", "reprocess":
	default:
		return fmt.Errorf("op must be schedule_change|reprocess")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
