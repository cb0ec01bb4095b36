package replay

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	txStatusSuccess  = "success"
	txStatusFailed   = "failed"
	txStatusRejected = "rejected"
)

type Metrics struct {
	transactions *prometheus.CounterVec
	computeUnits prometheus.Counter
	fees         prometheus.Counter
}

// NewMetrics creates the replay counters and registers them with r.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultkit",
			Subsystem: "replay",
			Name:      "transactions_total",
			Help:      "number of processed transactions by status",
		}, []string{"status"}),
		computeUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultkit",
			Subsystem: "replay",
			Name:      "compute_units",
			Help:      "compute units consumed by executed transactions",
		}),
		fees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultkit",
			Subsystem: "replay",
			Name:      "fees_lamports",
			Help:      "transaction fees charged",
		}),
	}
	err := errors.Join(
		r.Register(m.transactions),
		r.Register(m.computeUnits),
		r.Register(m.fees),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(result *TransactionResult) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(result.Status).Inc()
	m.computeUnits.Add(float64(result.ComputeUnitsUsed))
	m.fees.Add(float64(result.Fee))
}
