package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Return kinds.
const (
	ReturnSingle = "single"
	ReturnBulk   = "bulk"
)

// CirculationMetrics tracks lending activity.
type CirculationMetrics struct {
	checkouts    *prometheus.CounterVec
	loansCreated prometheus.Counter
	returns      *prometheus.CounterVec
	overdue      prometheus.Gauge
}

// NewCirculationMetrics registers the circulation collectors on reg. A nil
// registerer yields a recorder that drops everything.
func NewCirculationMetrics(reg prometheus.Registerer) *CirculationMetrics {
	if reg == nil {
		return &CirculationMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	loansCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_created_total",
		Help:      "Loans written by successful checkouts.",
	})
	returns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_returned_total",
		Help:      "Loans returned, by return kind.",
	}, []string{"kind"})
	overdue := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "overdue_loans",
		Help:      "Open loans past their due date at the last scan.",
	})
	reg.MustRegister(checkouts, loansCreated, returns, overdue)
	return &CirculationMetrics{
		checkouts:    checkouts,
		loansCreated: loansCreated,
		returns:      returns,
		overdue:      overdue,
	}
}

// ObserveCheckout records one checkout attempt and, on success, its loans.
func (c *CirculationMetrics) ObserveCheckout(outcome string, loans int) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && loans > 0 {
		c.loansCreated.Add(float64(loans))
	}
}

// AddReturns records returned loans.
func (c *CirculationMetrics) AddReturns(kind string, count int) {
	if c == nil || c.returns == nil || count <= 0 {
		return
	}
	c.returns.WithLabelValues(normalizeLabel(kind)).Add(float64(count))
}

// SetOverdue publishes the overdue loan count.
func (c *CirculationMetrics) SetOverdue(count int64) {
	if c == nil || c.overdue == nil {
		return
	}
	c.overdue.Set(float64(count))
}
