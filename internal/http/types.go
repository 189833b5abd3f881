package http

import (
	"net/http"

	"github.com/mauv0809/pairup/internal/inngest"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/pubsub"
)

type Server struct {
	Processor      *processor.Processor
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	// Delivery receives events pushed back by Pub/Sub subscriptions.
	Delivery notifier.Notifier
	// InngestClient is optional; the /api/inngest route is only mounted when set.
	InngestClient inngest.InngestClient
	Router        *http.ServeMux
	pubsub        pubsub.PubSubClient
}

// commandRequest is the optional JSON body accepted by participant commands.
type commandRequest struct {
	DisplayName string  `json:"display_name"`
	TopicIDs    []int64 `json:"topic_ids"`
	Text        string  `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type sweepResponse struct {
	Matches int  `json:"matches"`
	DryRun  bool `json:"dry_run"`
}
