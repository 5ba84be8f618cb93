package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acczen_orders_completed_total",
		Help: "Number of successfully completed purchase orders",
	})

	OrdersAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acczen_orders_amount_total",
		Help: "Total VND amount of completed purchase orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acczen_orders_failed_total",
		Help: "Number of rejected or failed purchase attempts",
	}, []string{"reason"})

	DepositsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acczen_deposits_completed_total",
		Help: "Number of completed deposits",
	}, []string{"method"})

	DepositsAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acczen_deposits_amount_total",
		Help: "Total VND amount credited by completed deposits",
	}, []string{"method"})

	ExternalRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acczen_external_requests_total",
		Help: "Outbound requests to third-party APIs",
	}, []string{"api", "outcome"})

	CircuitOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acczen_circuit_open_total",
		Help: "Times a circuit breaker opened",
	}, []string{"endpoint"})
)
