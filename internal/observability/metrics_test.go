package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/lumen-cms/lumen-cms/internal/jobs"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	jm := jobmetrics.NewMetrics(metrics.Registerer())
	if err := jm.Track("mail:welcome").End(nil); err != nil {
		t.Fatalf("unexpected tracker error: %v", err)
	}
	if err := jm.Track("mail:welcome").End(errors.New("smtp down")); err == nil {
		t.Fatal("expected tracker to return the original error")
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "lumen_jobs_total") {
		t.Fatalf("expected body to contain lumen_jobs_total, got: %s", body)
	}
	if !strings.Contains(body, "lumen_jobs_failures_total") {
		t.Fatalf("expected body to contain lumen_jobs_failures_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	mr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(mr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(mr.Body.String(), "lumen_http_requests_total") {
		t.Fatal("expected request counter to be exported after a request")
	}
}

func TestRecordLogin(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordLogin("failure")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `lumen_logins_total{outcome="failure"} 1`) {
		t.Fatalf("expected login counter, got: %s", rr.Body.String())
	}
}
