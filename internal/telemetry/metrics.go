package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepsnap",
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Quiz session state transitions by target state.",
	}, []string{"to"})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "prepsnap",
		Subsystem: "session",
		Name:      "live",
		Help:      "Quiz sessions currently registered.",
	})

	stubSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepsnap",
		Subsystem: "stub",
		Name:      "submissions_total",
		Help:      "Submissions graded by the stub quiz service by outcome.",
	}, []string{"outcome"})
)

// ObserveTransition counts a session entering a state.
func ObserveTransition(to string) {
	sessionStates.WithLabelValues(to).Inc()
}

// SessionRegistered adjusts the live session gauge.
func SessionRegistered(delta int) {
	liveSessions.Add(float64(delta))
}

// ObserveSubmission counts a stub submission outcome.
func ObserveSubmission(outcome string) {
	stubSubmissions.WithLabelValues(outcome).Inc()
}
