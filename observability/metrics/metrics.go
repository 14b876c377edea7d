package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeMetrics records transaction execution activity for the node.
type RuntimeMetrics struct {
	transactions *prometheus.CounterVec
	programErrs  *prometheus.CounterVec
	payouts      prometheus.Counter
	lamportsPaid prometheus.Counter
	platformFees prometheus.Counter
	events       prometheus.Counter
}

var (
	runtimeOnce     sync.Once
	runtimeRegistry *RuntimeMetrics
)

// Runtime returns the lazily-initialised runtime metrics registry.
func Runtime() *RuntimeMetrics {
	runtimeOnce.Do(func() {
		runtimeRegistry = &RuntimeMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Transactions executed, labelled by result.",
			}, []string{"result"}),
			programErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "runtime",
				Name:      "program_errors_total",
				Help:      "Program errors returned to callers, labelled by code.",
			}, []string{"code"}),
			payouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "escrow",
				Name:      "payouts_total",
				Help:      "Successful bounty payouts.",
			}),
			lamportsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "escrow",
				Name:      "payout_lamports_total",
				Help:      "Gross lamports paid out to hunters and the platform.",
			}),
			platformFees: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "escrow",
				Name:      "platform_fee_lamports_total",
				Help:      "Lamports routed to the platform wallet as fees.",
			}),
			events: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vulnera",
				Subsystem: "runtime",
				Name:      "events_total",
				Help:      "Events appended to the ledger event log.",
			}),
		}
		prometheus.MustRegister(
			runtimeRegistry.transactions,
			runtimeRegistry.programErrs,
			runtimeRegistry.payouts,
			runtimeRegistry.lamportsPaid,
			runtimeRegistry.platformFees,
			runtimeRegistry.events,
		)
	})
	return runtimeRegistry
}

// ObserveTransaction records one executed transaction.
func (m *RuntimeMetrics) ObserveTransaction(success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	m.transactions.WithLabelValues(result).Inc()
}

// ObserveProgramError records a coded program failure.
func (m *RuntimeMetrics) ObserveProgramError(code uint32) {
	m.programErrs.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

// ObservePayout records a successful payout with its gross amount and fee.
func (m *RuntimeMetrics) ObservePayout(gross, fee uint64) {
	m.payouts.Inc()
	m.lamportsPaid.Add(float64(gross))
	m.platformFees.Add(float64(fee))
}

// ObserveEvents records events appended to the log.
func (m *RuntimeMetrics) ObserveEvents(n int) {
	m.events.Add(float64(n))
}
