// Package query filters and paginates the current snapshot for the
// dashboard list operation.
package query

import (
	"strconv"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/frotaviva/trip-compliance/internal/core/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// Page is one filtered, paginated view over a snapshot. Total counts
// the filtered set, not the whole snapshot.
type Page struct {
	Items      []model.EnrichedTrip
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

type Engine struct {
	foldMemo *lru.Cache[string, string]
}

func NewEngine() *Engine {
	// field values repeat heavily across records (sectors, origins,
	// driver names), so folded forms are worth memoizing
	memo, _ := lru.New[string, string](8192)
	return &Engine{foldMemo: memo}
}

// Query filters snap by q's text filters (case- and accent-insensitive
// substring, all must match) and returns the requested page in stored
// order. An empty snapshot yields an empty page, not an error.
func (e *Engine) Query(snap model.Snapshot, q model.ListQuery) Page {
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	filtered := snap.Trips
	if hasFilters(q.Filters) {
		filtered = e.filter(snap.Trips, q.Filters)
	}

	total := len(filtered)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

func hasFilters(f model.ListFilters) bool {
	return f.Driver != "" || f.Line != "" || f.Direction != "" || f.Sector != "" ||
		f.Origin != "" || f.Destination != "" || f.ScheduledPrefix != "" || f.OperatedPrefix != ""
}

type predicate struct {
	needle string
	field  func(model.EnrichedTrip) string
}

func (e *Engine) filter(trips []model.EnrichedTrip, f model.ListFilters) []model.EnrichedTrip {
	preds := make([]predicate, 0, 8)
	add := func(raw string, field func(model.EnrichedTrip) string) {
		if raw == "" {
			return
		}
		preds = append(preds, predicate{needle: e.fold(raw), field: field})
	}

	add(f.Driver, func(t model.EnrichedTrip) string { return t.Driver })
	add(f.Line, func(t model.EnrichedTrip) string { return strconv.FormatInt(t.ActualLineID, 10) })
	add(f.Direction, func(t model.EnrichedTrip) string { return t.Direction })
	add(f.Sector, func(t model.EnrichedTrip) string { return t.Sector })
	add(f.Origin, func(t model.EnrichedTrip) string { return t.Origin })
	add(f.Destination, func(t model.EnrichedTrip) string { return t.Destination })
	add(f.ScheduledPrefix, func(t model.EnrichedTrip) string { return t.ScheduledVehicle })
	add(f.OperatedPrefix, func(t model.EnrichedTrip) string { return t.OperatedVehicle })

	out := make([]model.EnrichedTrip, 0, len(trips))
next:
	for _, t := range trips {
		for _, p := range preds {
			if !strings.Contains(e.fold(p.field(t)), p.needle) {
				continue next
			}
		}
		out = append(out, t)
	}
	return out
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips combining marks so "João" matches "joao".
// Filter and field values go through the same fold.
func (e *Engine) fold(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := e.foldMemo.Get(s); ok {
		return v
	}
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}
	folded := strings.ToLower(stripped)
	e.foldMemo.Add(s, folded)
	return folded
}
