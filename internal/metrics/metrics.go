package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersCreated prometheus.Counter
	StatusUpdates *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func New(service string) *Metrics {
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: service,
		Name:      "orders_created_total",
		Help:      "Total number of orders accepted and persisted.",
	})
	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: service,
		Name:      "status_updates_total",
		Help:      "Total number of order status transitions.",
	}, []string{"status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: service,
		Name:      "notifications_total",
		Help:      "Notification delivery outcomes.",
	}, []string{"outcome"})

	prometheus.MustRegister(created, updates, notifications)
	return &Metrics{OrdersCreated: created, StatusUpdates: updates, Notifications: notifications}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
