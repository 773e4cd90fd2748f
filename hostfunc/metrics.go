package hostfunc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts hash syscall outcomes.
type Metrics struct {
	calls      *prometheus.CounterVec
	inputBytes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashcall",
			Subsystem: "syscall",
			Name:      "hash_calls_total",
			Help:      "Hash syscalls by algorithm and result.",
		}, []string{"algorithm", "result"}),
		inputBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hashcall",
			Subsystem: "syscall",
			Name:      "hash_input_bytes_total",
			Help:      "Bytes hashed by successful hash syscalls.",
		}, []string{"algorithm"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.inputBytes)
	}
	return m
}

func (m *Metrics) observe(algorithm, result string, n uint32) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(algorithm, result).Inc()
	if result == "ok" {
		m.inputBytes.WithLabelValues(algorithm).Add(float64(n))
	}
}
