package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justapithecus/assay/export"
	"github.com/justapithecus/assay/metric"
)

func testMetrics() []*metric.Metric {
	return []*metric.Metric{
		{
			Name: "request.count",
			Unit: "unit",
			Type: metric.TypeCumulativeInt64,
			TimeSeries: []metric.TimeSeries{
				{Point: metric.NewInt64Point(time.Now(), 7)},
			},
		},
	}
}

func TestExport_Success(t *testing.T) {
	var got export.Snapshot
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Export(t.Context(), testMetrics()); err != nil {
		t.Fatalf("export: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if len(got.Metrics) != 1 || got.Metrics[0].Name != "request.count" {
		t.Errorf("Metrics = %v, want one request.count metric", got.Metrics)
	}
}

func TestExport_CustomHeaders(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := New(Config{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
		Retries: 0,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Export(t.Context(), nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if auth != "Bearer token" {
		t.Errorf("Authorization = %q, want Bearer token", auth)
	}
}

func TestExport_4xxNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	err = s.Export(t.Context(), nil)
	if err == nil {
		t.Fatal("Export() against 400 endpoint succeeded, want error")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want wrapped *StatusError", err)
	}
	if statusErr.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want 400", statusErr.Code)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want 1 (4xx must not be retried)", n)
	}
}

func TestExport_5xxRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Retries: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Export(t.Context(), nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestExport_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Retries: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Export(t.Context(), nil); err == nil {
		t.Fatal("Export() against persistent 503 succeeded, want error")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("requests = %d, want 2 (1 initial + 1 retry)", n)
	}
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with empty URL succeeded, want error")
	}
}

func TestNew_NegativeRetries(t *testing.T) {
	if _, err := New(Config{URL: "https://example.com", Retries: -1}); err == nil {
		t.Error("New() with negative retries succeeded, want error")
	}
}
