package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairup_matches_created_total",
			Help: "The total number of meetings created by the matchmaker.",
		}),
		MatchMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairup_match_misses_total",
			Help: "The total number of match searches that found no eligible partner.",
		}),
		ConflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairup_conflict_retries_total",
			Help: "The total number of transactions retried after a concurrent modification.",
		}),
		MeetingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairup_meeting_transitions_total",
			Help: "The total number of meetings moved to a terminal status.",
		}, []string{"status"}),
		FeedbackSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairup_feedback_submitted_total",
			Help: "The total number of feedback entries recorded.",
		}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pairup_find_match_duration_seconds",
			Help:    "The duration of individual match searches.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		NotifSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairup_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}, []string{"channel"}),
		NotifFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairup_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}, []string{"channel"}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairup_startup_time_seconds",
			Help: "Time taken for the application to start up.",
		}),
	}

	reg.MustRegister(
		s.MatchesCreated,
		s.MatchMisses,
		s.ConflictRetries,
		s.MeetingTransitions,
		s.FeedbackSubmitted,
		s.MatchDuration,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMatchesCreated() {
	s.MatchesCreated.Inc()
}

func (s *Service) IncMatchMisses() {
	s.MatchMisses.Inc()
}

func (s *Service) IncConflictRetries() {
	s.ConflictRetries.Inc()
}

func (s *Service) IncMeetingTransition(status string) {
	s.MeetingTransitions.WithLabelValues(status).Inc()
}

func (s *Service) IncFeedbackSubmitted() {
	s.FeedbackSubmitted.Inc()
}

func (s *Service) ObserveMatchDuration(duration float64) {
	s.MatchDuration.Observe(duration)
}

func (s *Service) IncNotifSent(channel string) {
	s.NotifSent.WithLabelValues(channel).Inc()
}

func (s *Service) IncNotifFailed(channel string) {
	s.NotifFailed.WithLabelValues(channel).Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
