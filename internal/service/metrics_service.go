package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec
	uploadsTotal    *prometheus.CounterVec
	reportCacheHits prometheus.Counter
	reportCacheMiss prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Export jobs by type and outcome",
	}, []string{"type", "outcome"})

	uploadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_uploads_total",
		Help: "Referral attachment uploads by outcome",
	}, []string{"outcome"})

	reportCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weekly_report_cache_hits_total",
		Help: "Weekly report cache hits",
	})

	reportCacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weekly_report_cache_misses_total",
		Help: "Weekly report cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, exportJobs, uploadsTotal, reportCacheHits, reportCacheMiss, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		exportJobs:      exportJobs,
		uploadsTotal:    uploadsTotal,
		reportCacheHits: reportCacheHits,
		reportCacheMiss: reportCacheMiss,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordExportJob counts one export job outcome.
func (m *MetricsService) RecordExportJob(exportType, outcome string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(exportType, outcome).Inc()
}

// RecordUpload counts one referral upload outcome.
func (m *MetricsService) RecordUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

// RecordReportCache counts a weekly report cache lookup.
func (m *MetricsService) RecordReportCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.reportCacheHits.Inc()
	} else {
		m.reportCacheMiss.Inc()
	}
}
