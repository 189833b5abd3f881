package metrics

import "context"

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncMatchesCreated()
	IncMatchMisses()
	IncConflictRetries()
	IncMeetingTransition(status string)
	IncFeedbackSubmitted()
	ObserveMatchDuration(duration float64)
	IncNotifSent(channel string)
	IncNotifFailed(channel string)
	SetStartupTime(duration float64)
}

// MetricsStore keeps simple named counters in the database. They survive
// restarts, unlike the Prometheus ones, and back the /stats endpoint.
type MetricsStore interface {
	Increment(ctx context.Context, key string)
	GetAll(ctx context.Context) (map[string]int, error)
}
