package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zephyrtronium/bouncer/metrics"
)

func TestPromCounterVec(t *testing.T) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commands"}, []string{"name"})
	o := metrics.NewPromCounterVec(v)
	o.Observe(1, "ping")
	o.Observe(1, "ping")
	o.Observe(1, "snipe")
	if got := testutil.ToFloat64(v.WithLabelValues("ping")); got != 2 {
		t.Errorf("wrong ping count: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(v.WithLabelValues("snipe")); got != 1 {
		t.Errorf("wrong snipe count: want 1, got %v", got)
	}
}

func TestNop(t *testing.T) {
	m := metrics.Nop()
	m.CommandCount.Observe(1, "ping")
	if len(m.Collectors()) != 7 {
		t.Errorf("wrong number of collectors: %d", len(m.Collectors()))
	}
}
