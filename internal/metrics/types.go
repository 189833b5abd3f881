package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	MatchesCreated     prometheus.Counter
	MatchMisses        prometheus.Counter
	ConflictRetries    prometheus.Counter
	MeetingTransitions *prometheus.CounterVec
	FeedbackSubmitted  prometheus.Counter
	MatchDuration      prometheus.Histogram
	NotifSent          *prometheus.CounterVec
	NotifFailed        *prometheus.CounterVec
	StartupTimeSeconds prometheus.Gauge
}
