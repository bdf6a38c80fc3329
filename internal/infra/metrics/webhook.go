package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookRequestsTotal,
		messagesProcessedTotal,
		rateLimitTriggeredTotal,
		dailyCountersResetTotal,
	)
}

var (
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_webhook_requests_total",
			Help: "Webhook calls from the WhatsApp bridge by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	messagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_messages_processed_total",
			Help: "Inbound messages by pipeline outcome (answered or skip reason).",
		},
		[]string{"outcome"},
	)

	rateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whatsapp_rate_limit_triggered_total",
			Help: "Total number of times a contact has been rate-limited.",
		},
	)

	dailyCountersResetTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whatsapp_daily_counters_reset_total",
			Help: "Accounts whose daily AI response counter was reset.",
		},
	)
)

func IncWebhookRequest(endpoint string, status int) {
	webhookRequestsTotal.WithLabelValues(norm(endpoint), statusLabel(status)).Inc()
}

func IncMessageOutcome(outcome string) {
	messagesProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRateLimitTriggered() {
	rateLimitTriggeredTotal.Inc()
}

func AddDailyCountersReset(n int64) {
	dailyCountersResetTotal.Add(float64(n))
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
