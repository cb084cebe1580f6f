package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain counters of the ledger services. A nil *Metrics
// records nothing.
type Metrics struct {
	transactionsLogged *prometheus.CounterVec
	bulkRowsRejected   prometheus.Counter
}

// NewMetrics creates the domain counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactionsLogged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pod_transactions_logged_total",
				Help: "Total number of POD transactions written to the ledger.",
			},
			[]string{"source", "status"},
		),
		bulkRowsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pod_bulk_rows_rejected_total",
				Help: "Total number of bulk upload rows rejected by validation or loss checks.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.transactionsLogged, m.bulkRowsRejected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) logged(source string, status string) {
	if m == nil {
		return
	}
	m.transactionsLogged.WithLabelValues(source, status).Inc()
}

func (m *Metrics) rejected(n int) {
	if m == nil || n == 0 {
		return
	}
	m.bulkRowsRejected.Add(float64(n))
}
