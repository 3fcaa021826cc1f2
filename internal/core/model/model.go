// Package model defines core domain types shared across the service.
package model

import (
	"strings"
	"time"
)

// TimestampLayout is the wire format used by the scheduling API for
// trip timestamps (day/month/year, 24h clock).
const TimestampLayout = "02/01/2006 15:04:05"

// TripRecord is one raw trip-execution record as returned by the
// scheduling API. Timestamps stay strings here; parsing happens once
// during normalization.
type TripRecord struct {
	ExpectedLineID   int64  `json:"idLinhaEsperada"`
	ActualLineID     int64  `json:"idLinha"`
	ScheduledStart   string `json:"dataInicioPrevisto"`
	ActualStart      string `json:"dataInicioRealizado,omitempty"`
	Driver           string `json:"nomeMotorista,omitempty"`
	ScheduledVehicle string `json:"prefixoPrevisto"`
	OperatedVehicle  string `json:"prefixoRealizado"`
	Direction        string `json:"sentido"`
	Sector           string `json:"nomeSetor"`
	Origin           string `json:"pontoOrigem"`
	Destination      string `json:"pontoDestino"`
	StartStatus      string `json:"statusInicio,omitempty"`
	EndStatus        string `json:"statusFim,omitempty"`
}

// ParseTimestamp parses a scheduling-API timestamp. Blank or malformed
// values report ok=false and are treated as absent by the rule engine.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ComplianceResult holds the five punctuality and itinerary flags
// computed once per trip. Never mutated after evaluation.
type ComplianceResult struct {
	DelayedAtStart bool `json:"atrasoInicio"`
	Delayed        bool `json:"atraso"`
	Early          bool `json:"adiantado"`
	MissedSchedule bool `json:"furoHorario"`
	WrongLine      bool `json:"linhaErrada"`
	MissedTrip     bool `json:"furoViagem"`
}

// EnrichedTrip is a TripRecord plus its ComplianceResult; the unit
// stored in a Snapshot.
type EnrichedTrip struct {
	TripRecord
	ComplianceResult
}

// RuleTotals aggregates per-rule counts over one import.
type RuleTotals struct {
	Delayed         int `json:"atrasos"`
	Early           int `json:"adiantados"`
	MissedSchedules int `json:"furos"`
	WrongLines      int `json:"linhasErradas"`
}

// Snapshot is the enriched dataset produced by one successful import,
// in upstream order, with the query that produced it.
type Snapshot struct {
	Trips     []EnrichedTrip
	CreatedAt time.Time
	Query     ImportQuery
}

// ImportQuery carries the required day plus the optional upstream
// filter fields. Empty optional fields are omitted from the upstream
// request entirely.
type ImportQuery struct {
	Date            string
	ServiceID       string
	CompanyID       string
	Line            string
	ScheduledPrefix string
	OperatedPrefix  string
	StatusStart     string
	StatusEnd       string
}

// ListFilters are the optional text filters for the list operation.
// Each supplied filter is a case- and accent-insensitive substring
// match; a record must satisfy all of them.
type ListFilters struct {
	Driver          string
	Line            string
	Direction       string
	Sector          string
	Origin          string
	Destination     string
	ScheduledPrefix string
	OperatedPrefix  string
}

type ListQuery struct {
	Filters ListFilters
	Page    int
	Limit   int
}

// ImportResponse is the dashboard-facing payload for the import operation.
type ImportResponse struct {
	Message   string         `json:"message"`
	Total     int            `json:"total"`
	Totals    RuleTotals     `json:"totais"`
	ElapsedMs int64          `json:"tempoMs"`
	Trips     []EnrichedTrip `json:"viagens"`
}

// ListResponse is one page of the current snapshot.
type ListResponse struct {
	Total      int            `json:"total"`
	ElapsedMs  int64          `json:"tempoMs"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	Trips      []EnrichedTrip `json:"viagens"`
}
