package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Verification outcomes by registry and rejection reason ("ok" on success)
	Outcomes *prometheus.CounterVec

	// Browser launches by registry and phase
	BrowserLaunches *prometheus.CounterVec

	// Portal navigation latency by registry and phase
	NavigationLatency *prometheus.HistogramVec

	// Challenge sessions currently awaiting an answer
	ActiveSessions prometheus.Gauge
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regverify_verifications_total",
			Help: "Total verification outcomes by registry and result",
		}, []string{"registry", "outcome"}),

		BrowserLaunches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regverify_browser_launches_total",
			Help: "Total browser contexts launched by registry and phase",
		}, []string{"registry", "phase"}), // phase: "challenge", "submit", "lookup"

		NavigationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regverify_navigation_duration_seconds",
			Help:    "Duration of portal navigation runs including retries",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"registry", "phase"}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "regverify_active_challenge_sessions",
			Help: "Challenge sessions stored and not yet consumed or expired",
		}),
	}
}

// IncrementOutcome records a verification outcome.
func (m *Metrics) IncrementOutcome(registry, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(registry, outcome).Inc()
	}
}

// IncrementBrowserLaunch records one browser context launch.
func (m *Metrics) IncrementBrowserLaunch(registry, phase string) {
	if m != nil {
		m.BrowserLaunches.WithLabelValues(registry, phase).Inc()
	}
}

// ObserveNavigation records how long a navigation run took.
func (m *Metrics) ObserveNavigation(registry, phase string, d time.Duration) {
	if m != nil {
		m.NavigationLatency.WithLabelValues(registry, phase).Observe(d.Seconds())
	}
}

// SetActiveSessions records the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}
