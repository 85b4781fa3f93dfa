package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts benefit lifecycle transitions.
type Metrics struct {
	RecordsInitialized    prometheus.Counter
	InstallmentsUnlocked  *prometheus.CounterVec
	ApplicationsSubmitted prometheus.Counter
	ApplicationsApproved  prometheus.Counter
	InstallmentsPaid      prometheus.Counter
	AmountPaidTotal       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsInitialized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "janani_benefit_records_initialized_total",
			Help: "Total benefit records created",
		}),
		InstallmentsUnlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "janani_benefit_installments_unlocked_total",
			Help: "Total installments unlocked, by installment number",
		}, []string{"installment"}),
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "janani_benefit_applications_submitted_total",
			Help: "Total installment applications submitted",
		}),
		ApplicationsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "janani_benefit_applications_approved_total",
			Help: "Total installment applications approved",
		}),
		InstallmentsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "janani_benefit_installments_paid_total",
			Help: "Total installments marked paid",
		}),
		AmountPaidTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "janani_benefit_amount_paid_total",
			Help: "Total currency units disbursed",
		}),
	}
}
