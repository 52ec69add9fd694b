package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/campusdesk/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ComplaintCreated()
	m.StatusChanged("Pending", "Resolved")
	m.ComplaintAssigned()
	m.ComplaintResolved()
	m.ComplaintDeleted()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New(nil, zap.NewNop())
	m.ComplaintCreated()
	m.ComplaintCreated()
	m.StatusChanged("Pending", "In Progress")

	body := scrape(t, m)
	if !strings.Contains(body, "campusdesk_complaints_created_total 2") {
		t.Errorf("created counter missing:\n%s", body)
	}
	if !strings.Contains(body, `campusdesk_complaint_status_changes_total{from="Pending",to="In Progress"} 1`) {
		t.Errorf("status change counter missing:\n%s", body)
	}
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New(nil, zap.NewNop())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/complaints/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/complaints/"+id, nil))
	}

	n, err := testutil.GatherAndCount(m.Registry(), "campusdesk_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one series for the route pattern, got %d", n)
	}
	body := scrape(t, m)
	if !strings.Contains(body, `route="/api/complaints/{id}"`) || !strings.Contains(body, `code="404"`) {
		t.Errorf("unexpected labels:\n%s", body)
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	b, _ := io.ReadAll(rec.Body)
	return string(b)
}
