package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiTokensTotal,
		aiCostMicroUSD,
		aiCallsLatencyMs,
		aiModelResolutions,
		aiUsageLogsTotal,
		aiInFlight,
		aiSlotWaitMs,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCostMicroUSD = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_micro_usd",
			Help: "Total micro-USD spent per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		},
		[]string{"provider", "model", "success"},
	)

	aiModelResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_model_resolutions_total",
			Help: "Which step of the model resolution chain produced the model.",
		},
		[]string{"source"}, // account, store_default, configured_fallback, none
	)

	aiUsageLogsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_usage_logs_total",
			Help: "Usage log writes by outcome.",
		},
		[]string{"outcome"}, // saved, skipped, error
	)
)

var (
	aiInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_calls_in_flight",
			Help: "AI backend calls currently holding a concurrency slot.",
		},
	)

	aiSlotWaitMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_slot_wait_ms",
			Help:    "Time spent waiting for an AI concurrency slot.",
			Buckets: []float64{1, 5, 25, 100, 500, 2000, 10000},
		},
	)
)

// AISlotAcquired records the wait and marks one more call in flight.
func AISlotAcquired(waitMs int64) {
	aiSlotWaitMs.Observe(float64(waitMs))
	aiInFlight.Inc()
}

func AISlotReleased() { aiInFlight.Dec() }

func ObserveChatUsage(provider, model string, tokensIn, tokensOut, tokensTotal int, costMicro int64, latencyMs int64, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiTokensTotal.WithLabelValues(lbl...).Add(float64(tokensTotal))
	aiCostMicroUSD.WithLabelValues(lbl...).Add(float64(costMicro))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncModelResolution(source string) {
	aiModelResolutions.WithLabelValues(norm(source)).Inc()
}

func IncUsageLog(outcome string) {
	aiUsageLogsTotal.WithLabelValues(norm(outcome)).Inc()
}
