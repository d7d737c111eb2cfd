package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is implemented by both the Prometheus-backed Metrics and
// NoopMetrics so callers never branch on whether metrics are enabled.
type Recorder interface {
	RecordLogin(flow string, success bool)
	RecordLogout(flow, result string)
	RecordTokenRefresh(flow string, success bool)
	RecordTokenVerification(policy, result string)
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	LoginTotal             *prometheus.CounterVec
	LogoutTotal            *prometheus.CounterVec
	TokenRefreshTotal      *prometheus.CounterVec
	TokenVerificationTotal *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns a Prometheus-backed Recorder when enabled, otherwise a noop.
// Uses sync.Once so Prometheus collectors are only registered once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		LoginTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Total number of login attempts by flow and result",
		}, []string{"flow", "result"}),

		LogoutTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logout_total",
			Help: "Total number of logout attempts by flow and result",
		}, []string{"flow", "result"}),

		TokenRefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Total number of token refresh attempts by flow and result",
		}, []string{"flow", "result"}),

		TokenVerificationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_verification_total",
			Help: "Total number of token verifications by policy and result",
		}, []string{"policy", "result"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func boolResult(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Metrics) RecordLogin(flow string, success bool) {
	m.LoginTotal.WithLabelValues(flow, boolResult(success)).Inc()
}

func (m *Metrics) RecordLogout(flow, result string) {
	m.LogoutTotal.WithLabelValues(flow, result).Inc()
}

func (m *Metrics) RecordTokenRefresh(flow string, success bool) {
	m.TokenRefreshTotal.WithLabelValues(flow, boolResult(success)).Inc()
}

func (m *Metrics) RecordTokenVerification(policy, result string) {
	m.TokenVerificationTotal.WithLabelValues(policy, result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
