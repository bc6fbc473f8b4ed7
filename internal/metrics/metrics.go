// Package metrics declares the Prometheus collectors of the storefront.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PreferencesTotal counts preference requests by result: ok,
	// provider_error or network_error.
	PreferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "preferences_total",
		Help:      "Payment preferences requested from Mercado Pago, by result.",
	}, []string{"result"})

	// PendingOrderWrites counts pending-order upserts by result.
	PendingOrderWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "pending_order_writes_total",
		Help:      "Pending order upserts, by result.",
	}, []string{"result"})

	// WebhookOutcomes counts processed notifications by outcome.
	WebhookOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "webhook_notifications_total",
		Help:      "Payment notifications received, by outcome.",
	}, []string{"outcome"})

	// NotificationFailures counts best-effort notifier failures by channel.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "notification_failures_total",
		Help:      "Order notifications that could not be delivered, by channel.",
	}, []string{"channel"})
)

// Result labels an outcome as "ok" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
