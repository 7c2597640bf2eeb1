package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/commonfund/commonfund/module"
)

type EngineCollector struct {
	applied  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	legs     *prometheus.CounterVec
}

var _ module.EngineMetrics = (*EngineCollector)(nil)

func NewEngineCollector() *EngineCollector {

	ec := &EngineCollector{

		applied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:      "transitions_applied_total",
			Namespace: namespaceFund,
			Subsystem: subsystemEngine,
			Help:      "the number of state transitions committed by engines",
		}, []string{EngineLabel, LabelOperation}),

		rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:      "transitions_rejected_total",
			Namespace: namespaceFund,
			Subsystem: subsystemEngine,
			Help:      "the number of operations rejected by engines",
		}, []string{EngineLabel, LabelOperation}),

		legs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:      "transfer_legs_total",
			Namespace: namespaceFund,
			Subsystem: subsystemEngine,
			Help:      "the number of transfer legs emitted by engines",
		}, []string{EngineLabel, LabelOperation}),
	}

	return ec
}

func (ec *EngineCollector) TransitionApplied(engine string, operation string) {
	ec.applied.With(prometheus.Labels{EngineLabel: engine, LabelOperation: operation}).Inc()
}

func (ec *EngineCollector) TransitionRejected(engine string, operation string) {
	ec.rejected.With(prometheus.Labels{EngineLabel: engine, LabelOperation: operation}).Inc()
}

func (ec *EngineCollector) TransferEmitted(engine string, operation string, legs int) {
	ec.legs.With(prometheus.Labels{EngineLabel: engine, LabelOperation: operation}).Add(float64(legs))
}
