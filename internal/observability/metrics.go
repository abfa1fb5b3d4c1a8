package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the domain counters.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeReplayed = "replayed"
)

var (
	// chatTurns counts chat turns by outcome.
	chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns by outcome.",
		},
		[]string{"outcome"},
	)

	// chatFragments counts fragments relayed from the engine to callers.
	chatFragments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_fragments_total",
			Help: "Total number of reply fragments aggregated by the chat gateway.",
		},
	)

	// chatTurnDur records the engine time of completed turns.
	chatTurnDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Duration of chat turns in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// predictions counts calls to the prediction backend by outcome.
	predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_requests_total",
			Help: "Total number of prediction backend requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(chatTurns, chatFragments, chatTurnDur, predictions)
}

// ObserveChatTurn records one chat turn. Fragments and duration are only
// recorded for turns that reached the engine.
func ObserveChatTurn(outcome string, fragments int, d time.Duration) {
	chatTurns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeError {
		chatFragments.Add(float64(fragments))
		chatTurnDur.Observe(d.Seconds())
	}
}

// ObservePrediction records one prediction backend call.
func ObservePrediction(outcome string) {
	predictions.WithLabelValues(outcome).Inc()
}
