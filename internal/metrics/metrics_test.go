package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Request("textDocument/hover", "ok", 3*time.Millisecond)
	r.Request("textDocument/hover", "ok", time.Millisecond)
	r.Analysis(OutcomeCompleted, 2*time.Millisecond, 4)
	r.Analysis(OutcomeSuperseded, 0, 9)
	r.Published(3)

	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("textDocument/hover", "ok")); got != 2 {
		t.Fatalf("expected 2 hover requests, got %v", got)
	}
	if got := testutil.ToFloat64(r.reusedItems); got != 4 {
		t.Fatalf("superseded analyses must not count reuse, got %v", got)
	}
	if got := testutil.ToFloat64(r.analysesTotal.WithLabelValues(OutcomeSuperseded)); got != 1 {
		t.Fatalf("expected one superseded analysis, got %v", got)
	}
	if got := testutil.ToFloat64(r.diagnostics); got != 3 {
		t.Fatalf("expected 3 published diagnostics, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Request("x", "ok", time.Second)
	r.Analysis(OutcomeFailed, 0, 0)
	r.Published(1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.Published(1)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "xpl_diagnostics_published_total 1") {
		t.Fatalf("expected counter in exposition, got:\n%s", body)
	}
}
