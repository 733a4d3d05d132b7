package chain

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts runtime activity. A nil *Metrics records nothing.
type Metrics struct {
	txs      *prometheus.CounterVec
	subcalls *prometheus.CounterVec
	replies  *prometheus.CounterVec
}

// NewMetrics creates the runtime collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entrypoint",
			Subsystem: "runtime",
			Name:      "transactions_total",
			Help:      "Transactions executed, by entry point and outcome.",
		}, []string{"entry_point", "outcome"}),
		subcalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entrypoint",
			Subsystem: "runtime",
			Name:      "submessages_total",
			Help:      "Sub-messages dispatched, by message kind and outcome.",
		}, []string{"kind", "outcome"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entrypoint",
			Subsystem: "runtime",
			Name:      "replies_total",
			Help:      "Replies delivered to contracts, by sub-message outcome.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.txs, m.subcalls, m.replies)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

func (m *Metrics) observeTx(entryPoint CallKind, err error) {
	if m == nil {
		return
	}
	m.txs.WithLabelValues(string(entryPoint), outcome(err)).Inc()
}

func (m *Metrics) observeSubMsg(kind string, err error) {
	if m == nil {
		return
	}
	m.subcalls.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) observeReply(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.replies.WithLabelValues(result).Inc()
}
