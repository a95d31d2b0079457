// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
// for the planning core.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlannerMetrics collects the planning funnel: requests in, candidates
// retrieved, generation attempts, repairs, fallbacks, plans out.
type PlannerMetrics struct {
	plansTotal          *prometheus.CounterVec
	planDuration        prometheus.Histogram
	candidatesRetrieved prometheus.Histogram
	generationAttempts  *prometheus.CounterVec
	repairsTotal        prometheus.Counter
	fallbacksTotal      prometheus.Counter
	fitScore            prometheus.Histogram
}

// NewPlannerMetrics registers and returns the planner metrics.
func NewPlannerMetrics() *PlannerMetrics {
	return &PlannerMetrics{
		plansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platewise_plans_total",
				Help: "Plan requests by outcome",
			},
			[]string{"outcome"},
		),
		planDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "platewise_plan_duration_seconds",
				Help:    "End-to-end plan request duration",
				Buckets: prometheus.DefBuckets,
			},
		),
		candidatesRetrieved: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "platewise_candidates_retrieved",
				Help:    "Candidate set sizes returned by retrieval",
				Buckets: prometheus.LinearBuckets(0, 5, 10),
			},
		),
		generationAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platewise_generation_attempts_total",
				Help: "Generation round trips by result",
			},
			[]string{"result"},
		),
		repairsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "platewise_repairs_total",
				Help: "Corrective re-prompts issued",
			},
		),
		fallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "platewise_fallbacks_total",
				Help: "Requests answered by the deterministic composer",
			},
		),
		fitScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "platewise_fit_score",
				Help:    "Fit score of returned plans",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
	}
}

// ObservePlan records one finished request.
func (m *PlannerMetrics) ObservePlan(outcome string, duration time.Duration, fitScore float64) {
	if m == nil {
		return
	}
	m.plansTotal.WithLabelValues(outcome).Inc()
	m.planDuration.Observe(duration.Seconds())
	if fitScore >= 0 {
		m.fitScore.Observe(fitScore)
	}
}

// ObserveCandidates records the retrieved candidate set size.
func (m *PlannerMetrics) ObserveCandidates(count int) {
	if m == nil {
		return
	}
	m.candidatesRetrieved.Observe(float64(count))
}

// ObserveGeneration records one generation round trip.
func (m *PlannerMetrics) ObserveGeneration(result string) {
	if m == nil {
		return
	}
	m.generationAttempts.WithLabelValues(result).Inc()
}

// ObserveRepair records one corrective re-prompt.
func (m *PlannerMetrics) ObserveRepair() {
	if m == nil {
		return
	}
	m.repairsTotal.Inc()
}

// ObserveFallback records a request answered by the composer.
func (m *PlannerMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.fallbacksTotal.Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
