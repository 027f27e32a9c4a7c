package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	prometheus.Collector
}

type Metrics struct {
	MessagesCount     Observer
	CommandCount      Observer
	DeniedCount       Observer
	ActionFailures    Observer
	PersistFailures   Observer
	WakeupMoves       Observer
	GuardTriggerCount Observer
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesCount,
		m.CommandCount,
		m.DeniedCount,
		m.ActionFailures,
		m.PersistFailures,
		m.WakeupMoves,
		m.GuardTriggerCount,
	}
}

// Nop returns metrics that record nothing, for tests and tools.
func Nop() *Metrics {
	n := nop{prometheus.NewCounter(prometheus.CounterOpts{Name: "nop"})}
	return &Metrics{
		MessagesCount:     n,
		CommandCount:      n,
		DeniedCount:       n,
		ActionFailures:    n,
		PersistFailures:   n,
		WakeupMoves:       n,
		GuardTriggerCount: n,
	}
}

type nop struct {
	prometheus.Collector
}

func (nop) Observe(val float64, labels ...string) {}
