// Package metrics exposes Prometheus counters for complaint activity and
// gauges computed from the database at scrape time.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	metricsstore "github.com/dalemusser/campusdesk/internal/app/store/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const namespace = "campusdesk"

// Metrics owns a private registry. The zero value is not usable; a nil
// *Metrics is, and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	complaintsCreated prometheus.Counter
	statusChanges     *prometheus.CounterVec
	assignments       prometheus.Counter
	resolutions       prometheus.Counter
	deletions         prometheus.Counter

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers all collectors. db may be nil, in which case the
// database-backed gauges are omitted.
func New(db *mongo.Database, log *zap.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		complaintsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "complaints_created_total",
			Help: "Complaints submitted.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "complaint_status_changes_total",
			Help: "Complaint status transitions.",
		}, []string{"from", "to"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "complaint_assignments_total",
			Help: "Complaints assigned to staff.",
		}),
		resolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "complaint_resolutions_total",
			Help: "Complaints resolved by their assignee.",
		}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "complaints_deleted_total",
			Help: "Complaints deleted.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.complaintsCreated, m.statusChanges, m.assignments, m.resolutions, m.deletions,
		m.requests, m.duration,
	)
	if db != nil {
		m.reg.MustRegister(newDBCollector(db, log))
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ComplaintCreated() {
	if m != nil {
		m.complaintsCreated.Inc()
	}
}

func (m *Metrics) StatusChanged(from, to string) {
	if m != nil {
		m.statusChanges.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) ComplaintAssigned() {
	if m != nil {
		m.assignments.Inc()
	}
}

func (m *Metrics) ComplaintResolved() {
	if m != nil {
		m.resolutions.Inc()
	}
}

func (m *Metrics) ComplaintDeleted() {
	if m != nil {
		m.deletions.Inc()
	}
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so /api/complaints/{id} is one series rather than one per id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// dbCollector reads totals from Mongo on every scrape.
type dbCollector struct {
	db  *mongo.Database
	log *zap.Logger

	users       *prometheus.Desc
	departments *prometheus.Desc
	complaints  *prometheus.Desc
	unassigned  *prometheus.Desc
}

func newDBCollector(db *mongo.Database, log *zap.Logger) *dbCollector {
	return &dbCollector{
		db:          db,
		log:         log,
		users:       prometheus.NewDesc(namespace+"_users", "Users by role.", []string{"role"}, nil),
		departments: prometheus.NewDesc(namespace+"_departments", "Departments.", nil, nil),
		complaints:  prometheus.NewDesc(namespace+"_complaints", "Complaints by status.", []string{"status"}, nil),
		unassigned:  prometheus.NewDesc(namespace+"_complaints_unassigned", "Open complaints with no assignee.", nil, nil),
	}
}

func (c *dbCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.users
	ch <- c.departments
	ch <- c.complaints
	ch <- c.unassigned
}

func (c *dbCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts := metricsstore.FetchCounts(ctx, c.db)
	for role, n := range counts.UsersByRole {
		ch <- prometheus.MustNewConstMetric(c.users, prometheus.GaugeValue, float64(n), role)
	}
	for status, n := range counts.ComplaintsByStatus {
		ch <- prometheus.MustNewConstMetric(c.complaints, prometheus.GaugeValue, float64(n), status)
	}
	ch <- prometheus.MustNewConstMetric(c.departments, prometheus.GaugeValue, float64(counts.Departments))
	ch <- prometheus.MustNewConstMetric(c.unassigned, prometheus.GaugeValue, float64(counts.Unassigned))
	if ctx.Err() != nil {
		c.log.Warn("metrics collection timed out", zap.Error(ctx.Err()))
	}
}
