package http

import (
	"net/http"

	"github.com/mauv0809/pairup/internal/inngest"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/pubsub"
)

func NewServer(proc *processor.Processor, metricsSvc metrics.Metrics, metricsHandler http.Handler, delivery notifier.Notifier, pubsub pubsub.PubSubClient, inngestClient inngest.InngestClient) *Server {
	server := &Server{
		Processor:      proc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Delivery:       delivery,
		InngestClient:  inngestClient,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("GET /stats", Chain(s.StatsHandler(), paramsMiddleware))
	s.Router.Handle("POST /clear", Chain(s.ClearStoreHandler(), paramsMiddleware))
	s.Router.Handle("GET /topics", Chain(s.ListTopicsHandler(), paramsMiddleware))
	s.Router.Handle("POST /matchmaking/sweep", Chain(s.SweepHandler(), paramsMiddleware))

	s.Router.Handle("GET /contexts/{context}/participant", Chain(s.ContextParticipantHandler(), paramsMiddleware))
	s.Router.Handle("GET /participants/{context}/{person}", Chain(s.GetParticipantHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/start", Chain(s.StartHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/join", Chain(s.JoinHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/postpone", Chain(s.PostponeHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/online", Chain(s.ModeHandler(participant.ModeOnline), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/offline", Chain(s.ModeHandler(participant.ModeOffline), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/topics", Chain(s.TopicsHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/ready", Chain(s.ReadyHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/meeting/happened", Chain(s.MeetingHappenedHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/meeting/cancelled", Chain(s.MeetingCancelledHandler(), paramsMiddleware))
	s.Router.Handle("POST /participants/{context}/{person}/messages", Chain(s.MessageHandler(), paramsMiddleware))

	// Pub/Sub push subscriptions deliver events to the chat notifiers.
	s.Router.Handle("POST /pubsub/match-found", Chain(s.MatchFoundPushHandler(), paramsMiddleware))
	s.Router.Handle("POST /pubsub/meeting-status-changed", Chain(s.MeetingStatusPushHandler(), paramsMiddleware))
	s.Router.Handle("POST /pubsub/message-relayed", Chain(s.MessageRelayedPushHandler(), paramsMiddleware))

	if s.InngestClient != nil {
		s.Router.Handle("/api/inngest", s.InngestClient.Serve())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
