package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records outcomes of the generation pipeline.
type GenerationMetrics struct {
	duration     *prometheus.HistogramVec
	generations  *prometheus.CounterVec
	quotaDenials prometheus.Counter
}

// NewGenerationMetrics registers generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "Duration of generation requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_requests_total",
		Help: "Generation requests by outcome.",
	}, []string{"outcome"})
	quotaDenials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quota_denials_total",
		Help: "Generation requests denied by the daily quota.",
	})
	reg.MustRegister(duration, generations, quotaDenials)
	return &GenerationMetrics{
		duration:     duration,
		generations:  generations,
		quotaDenials: quotaDenials,
	}
}

// ObserveDuration records the duration of a generation attempt.
func (g *GenerationMetrics) ObserveDuration(outcome string, d time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncGeneration counts a generation attempt by outcome.
func (g *GenerationMetrics) IncGeneration(outcome string) {
	if g == nil || g.generations == nil {
		return
	}
	g.generations.WithLabelValues(outcome).Inc()
}

// IncQuotaDenial counts a quota denial.
func (g *GenerationMetrics) IncQuotaDenial() {
	if g == nil || g.quotaDenials == nil {
		return
	}
	g.quotaDenials.Inc()
}
