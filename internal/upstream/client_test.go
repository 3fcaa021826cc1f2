package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frotaviva/trip-compliance/internal/core/model"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestBuildQuery_OmitsEmptyFields(t *testing.T) {
	v := buildQuery(model.ImportQuery{Date: "10-01-2025", Line: "77"})

	if v.Get("data") != "10-01-2025" || v.Get("linha") != "77" {
		t.Fatalf("values=%v", v)
	}
	for _, k := range []string{"idservico", "idempresa", "prefixoPrevisto", "prefixoRealizado", "statusInicio", "statusFim"} {
		if _, present := v[k]; present {
			t.Errorf("empty field %q was sent", k)
		}
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("data") != "10-01-2025" {
			t.Errorf("missing data param: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"idLinhaEsperada":10,"idLinha":12,"dataInicioPrevisto":"10/01/2025 10:00:00","nomeMotorista":"João"}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, srv.Client(), fastPolicy(3), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	records, err := c.Fetch(context.Background(), model.ImportQuery{Date: "10-01-2025"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 || records[0].ExpectedLineID != 10 || records[0].ActualLineID != 12 {
		t.Fatalf("records=%+v", records)
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, srv.Client(), fastPolicy(3), nil)

	if _, err := c.Fetch(context.Background(), model.ImportQuery{Date: "10-01-2025"}); err != nil {
		t.Fatalf("Fetch after retries: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("calls=%d want 3", n)
	}
}

func TestFetch_FailureAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, srv.Client(), fastPolicy(3), nil)

	_, err := c.Fetch(context.Background(), model.ImportQuery{Date: "10-01-2025"})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("err=%v want ErrUpstreamFailure", err)
	}
	if errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("non-timeout failure classified as timeout: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("calls=%d want 3 (bounded retry)", n)
	}
}

func TestFetch_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	hc := &http.Client{Timeout: 20 * time.Millisecond}
	c, _ := NewClient(srv.URL, hc, fastPolicy(2), nil)

	_, err := c.Fetch(context.Background(), model.ImportQuery{Date: "10-01-2025"})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("err=%v want ErrUpstreamTimeout", err)
	}
}

func TestFetch_MalformedBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, srv.Client(), fastPolicy(2), nil)

	_, err := c.Fetch(context.Background(), model.ImportQuery{Date: "10-01-2025"})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("err=%v want ErrUpstreamFailure", err)
	}
}

func TestFetch_ContextCancelStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := NewClient(srv.URL, srv.Client(), fastPolicy(3), nil)
	if _, err := c.Fetch(ctx, model.ImportQuery{Date: "10-01-2025"}); err == nil {
		t.Fatal("expected error with canceled context")
	}
	if n := calls.Load(); n > 1 {
		t.Fatalf("calls=%d, kept retrying after cancellation", n)
	}
}

func TestRetryPolicy_BackoffBounded(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		d := p.backoff(attempt)
		if d < 0 || d > p.MaxDelay {
			t.Fatalf("attempt %d: backoff %v outside [0,%v]", attempt, d, p.MaxDelay)
		}
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient("://bad", nil, DefaultRetryPolicy(), nil); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestNewClient_NormalizesAttempts(t *testing.T) {
	c, err := NewClient("http://localhost", http.DefaultClient, RetryPolicy{MaxAttempts: 0}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.retry.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts=%d want 1", c.retry.MaxAttempts)
	}
}
