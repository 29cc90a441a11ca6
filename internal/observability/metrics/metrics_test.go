package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsNormalizedPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/pdf") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/api/claims/abc/pdf", "/api/claims/def/pdf", "/api/claims/abc"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/api/claims/{id}/pdf", "404")); got != 2 {
		t.Fatalf("expected 2 pdf requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/api/claims/{id}", "200")); got != 1 {
		t.Fatalf("expected 1 claim request, got %v", got)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/health":               "/api/health",
		"/api/claims/export.xlsx":   "/api/claims/export.xlsx",
		"/api/claims/abc123":        "/api/claims/{id}",
		"/api/claims/abc123/verify": "/api/claims/{id}/verify",
		"/api/claims/abc123/pdf":    "/api/claims/{id}/pdf",
		"/api/claims":               "/api/claims",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPipelineMetricsShareRegistry(t *testing.T) {
	httpMetrics := NewHTTPServerMetrics("api")
	pipeline := NewPipelineMetrics("api", httpMetrics.Registry())

	pipeline.RecordSubmission("ok", 2)
	pipeline.RecordSubmission("degraded", 0)
	pipeline.RecordDegradation("imagery")
	pipeline.RecordRenderDuration(150 * time.Millisecond)

	if got := testutil.ToFloat64(pipeline.submissionsTotal.WithLabelValues("api", "ok")); got != 1 {
		t.Fatalf("expected 1 ok submission, got %v", got)
	}
	if got := testutil.ToFloat64(pipeline.degradationsTotal.WithLabelValues("api", "imagery")); got != 1 {
		t.Fatalf("expected 1 imagery degradation, got %v", got)
	}

	rec := httptest.NewRecorder()
	httpMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"farmsure_claims_submissions_total", "farmsure_claims_render_duration_seconds", "farmsure_claims_evidence_files"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
