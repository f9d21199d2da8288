// Package metrics holds the prometheus collectors exported by the bot.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	updates         *prometheus.CounterVec
	gate            *prometheus.CounterVec
	invoices        *prometheus.CounterVec
	paymentChecks   *prometheus.CounterVec
	broadcast       *prometheus.CounterVec
	gatewayErrors   *prometheus.CounterVec
	giftDeliveries  *prometheus.CounterVec
	usersTotal      prometheus.Gauge
	subscribersOpen prometheus.Gauge
	bannedTotal     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "updates_total", Help: "Inbound updates by kind.",
		}, []string{"kind"}),
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "gate_decisions_total", Help: "Access gate decisions.",
		}, []string{"decision"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "invoices_created_total", Help: "Invoices created by asset.",
		}, []string{"asset"}),
		paymentChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "payment_checks_total", Help: "Payment polls by outcome.",
		}, []string{"outcome"}),
		broadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "broadcast_deliveries_total", Help: "Broadcast delivery attempts by result.",
		}, []string{"result"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "gateway_errors_total", Help: "Payment gateway failures by operation.",
		}, []string{"op"}),
		giftDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftbot", Name: "gift_deliveries_total", Help: "Gift animations sent by result.",
		}, []string{"result"}),
		usersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftbot", Name: "users", Help: "Known users.",
		}),
		subscribersOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftbot", Name: "subscribers", Help: "Users with a currently valid subscription.",
		}),
		bannedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftbot", Name: "banned", Help: "Banned identities.",
		}),
	}
	m.Registry.MustRegister(
		m.updates, m.gate, m.invoices, m.paymentChecks, m.broadcast,
		m.gatewayErrors, m.giftDeliveries, m.usersTotal, m.subscribersOpen, m.bannedTotal,
	)
	return m
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) GateDecision(decision string) {
	if m == nil {
		return
	}
	m.gate.WithLabelValues(decision).Inc()
}

func (m *Metrics) InvoiceCreated(asset string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(asset).Inc()
}

func (m *Metrics) PaymentCheck(outcome string) {
	if m == nil {
		return
	}
	m.paymentChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BroadcastDelivery(result string) {
	if m == nil {
		return
	}
	m.broadcast.WithLabelValues(result).Inc()
}

func (m *Metrics) GatewayError(op string) {
	if m == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) GiftDelivery(result string) {
	if m == nil {
		return
	}
	m.giftDeliveries.WithLabelValues(result).Inc()
}

// SetDirectory publishes the aggregate counts of the user directory.
func (m *Metrics) SetDirectory(users, subscribers, banned int64) {
	if m == nil {
		return
	}
	m.usersTotal.Set(float64(users))
	m.subscribersOpen.Set(float64(subscribers))
	m.bannedTotal.Set(float64(banned))
}
