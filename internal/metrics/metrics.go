// AngelaMos | 2026
// metrics.go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GrantsActivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetutor_grants_activated_total",
			Help: "Entitlement grants activated by kind and activation method",
		},
		[]string{"kind", "method"},
	)

	PromoAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetutor_promo_attempts_total",
			Help: "Promo code redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetutor_payments_total",
			Help: "Confirmed payments by recognition result",
		},
		[]string{"result"},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicetutor_pipeline_runs_total",
			Help: "Voice pipeline invocations by mode (fresh, retry) and result",
		},
		[]string{"mode", "result"},
	)

	PipelineStageSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicetutor_pipeline_stage_seconds",
			Help:    "Duration of voice pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"stage"},
	)

	RetryCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicetutor_retry_cache_entries",
			Help: "Payloads currently held for user-initiated retry (in-memory backend only)",
		},
	)
)

func RecordActivation(kind, method string) {
	GrantsActivatedTotal.WithLabelValues(kind, method).Inc()
}

func RecordPromoAttempt(outcome string) {
	PromoAttemptsTotal.WithLabelValues(outcome).Inc()
}

func RecordPayment(result string) {
	PaymentsTotal.WithLabelValues(result).Inc()
}

func RecordPipelineRun(mode, result string) {
	PipelineRunsTotal.WithLabelValues(mode, result).Inc()
}

func ObserveStage(stage string, seconds float64) {
	PipelineStageSeconds.WithLabelValues(stage).Observe(seconds)
}
