package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hairsim"

type Metrics struct {
	GenerationAttempts *prometheus.CounterVec
	Charges            *prometheus.CounterVec
	ReconciliationGaps *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GenerationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Generation attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Charges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charges_total",
			Help:      "Ledger charges by service type and outcome.",
		}, []string{"service_type", "outcome"}),
		ReconciliationGaps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_gaps_total",
			Help:      "Balance changes whose audit record or charge could not be written.",
		}, []string{"reason"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "AI provider call latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}, []string{"provider", "modality"}),
	}
}

func (m *Metrics) ObserveProvider(provider, modality string, started time.Time) {
	m.ProviderLatency.WithLabelValues(provider, modality).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Generation(kind, outcome string) {
	m.GenerationAttempts.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Charge(serviceType, outcome string) {
	m.Charges.WithLabelValues(serviceType, outcome).Inc()
}

func (m *Metrics) ReconciliationGap(reason string) {
	m.ReconciliationGaps.WithLabelValues(reason).Inc()
}
