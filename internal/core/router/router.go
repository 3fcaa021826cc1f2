package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frotaviva/trip-compliance/internal/core/model"
	"github.com/frotaviva/trip-compliance/internal/core/observability"
	"github.com/frotaviva/trip-compliance/internal/upstream"
)

// MaxLimit is the hard page-size cap applied at the validation boundary.
const MaxLimit = 100

// TripService is the import/list surface served to the dashboard.
type TripService interface {
	Import(ctx context.Context, q model.ImportQuery) (model.ImportResponse, error)
	List(ctx context.Context, q model.ListQuery) (model.ListResponse, error)
}

// HandleImport validates the import params and runs the import.
func HandleImport(logger *slog.Logger, svc TripService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseImportQuery(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err.Error())
			observability.ObserveHTTP(r.Method, "/api/trips/import", sw.code, time.Since(start).Seconds())
			return
		}

		resp, err := svc.Import(r.Context(), q)
		if err != nil {
			writeServiceError(sw, logger, err)
			observability.ObserveHTTP(r.Method, "/api/trips/import", sw.code, time.Since(start).Seconds())
			return
		}

		writeJSON(sw, http.StatusOK, resp)
		observability.ObserveHTTP(r.Method, "/api/trips/import", sw.code, time.Since(start).Seconds())
	}
}

// HandleList validates the list params and serves one page.
func HandleList(logger *slog.Logger, svc TripService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseListQuery(r)
		if err != nil {
			writeError(sw, http.StatusBadRequest, err.Error())
			observability.ObserveHTTP(r.Method, "/api/trips", sw.code, time.Since(start).Seconds())
			return
		}

		resp, err := svc.List(r.Context(), q)
		if err != nil {
			writeServiceError(sw, logger, err)
			observability.ObserveHTTP(r.Method, "/api/trips", sw.code, time.Since(start).Seconds())
			return
		}

		writeJSON(sw, http.StatusOK, resp)
		observability.ObserveHTTP(r.Method, "/api/trips", sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseImportQuery validates the required day and collects the optional
// upstream filter fields.
func ParseImportQuery(r *http.Request) (model.ImportQuery, error) {
	get := func(k string) string { return strings.TrimSpace(r.URL.Query().Get(k)) }

	date := get("data")
	if date == "" {
		return model.ImportQuery{}, errors.New("missing required parameter: data")
	}
	if _, err := time.Parse("02-01-2006", date); err != nil {
		return model.ImportQuery{}, fmt.Errorf("invalid data %q: expected DD-MM-YYYY", date)
	}

	return model.ImportQuery{
		Date:            date,
		ServiceID:       get("idservico"),
		CompanyID:       get("idempresa"),
		Line:            get("linha"),
		ScheduledPrefix: get("prefixoPrevisto"),
		OperatedPrefix:  get("prefixoRealizado"),
		StatusStart:     get("statusInicio"),
		StatusEnd:       get("statusFim"),
	}, nil
}

// ParseListQuery collects the text filters and normalizes pagination:
// page defaults to 1, limit to 50, limit is capped at MaxLimit.
func ParseListQuery(r *http.Request) (model.ListQuery, error) {
	get := func(k string) string { return strings.TrimSpace(r.URL.Query().Get(k)) }

	page := 1
	if raw := get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return model.ListQuery{}, fmt.Errorf("invalid page %q", raw)
		}
		page = n
	}

	limit := 50
	if raw := get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return model.ListQuery{}, fmt.Errorf("invalid limit %q", raw)
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		limit = n
	}

	return model.ListQuery{
		Filters: model.ListFilters{
			Driver:          get("motorista"),
			Line:            get("linha"),
			Direction:       get("sentido"),
			Sector:          get("setor"),
			Origin:          get("origem"),
			Destination:     get("destino"),
			ScheduledPrefix: get("prefixoPrevisto"),
			OperatedPrefix:  get("prefixoRealizado"),
		},
		Page:  page,
		Limit: limit,
	}, nil
}

// writeServiceError maps the upstream failure taxonomy to gateway
// statuses; everything else is an internal error.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, upstream.ErrUpstreamTimeout):
		logger.Error("upstream timeout", "err", err)
		writeError(w, http.StatusGatewayTimeout, "scheduling api timed out")
	case errors.Is(err, upstream.ErrUpstreamFailure):
		logger.Error("upstream failure", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
