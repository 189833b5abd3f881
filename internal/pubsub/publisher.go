package pubsub

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pairup/internal/events"
	"github.com/mauv0809/pairup/internal/notifier"
)

var _ notifier.Notifier = (*Publisher)(nil)

// Publisher hands events to Pub/Sub instead of delivering them directly.
// Push subscriptions bring them back through the HTTP server to the real notifiers.
type Publisher struct {
	client PubSubClient
}

func NewPublisher(client PubSubClient) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) publish(ctx context.Context, topic EventType, data any, dryRun bool) error {
	if dryRun {
		log.Info("[Dry Run] Would publish event", "topic", topic)
		return nil
	}
	return p.client.SendMessage(ctx, topic, data)
}

func (p *Publisher) NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error {
	return p.publish(ctx, EventMatchFound, ev, dryRun)
}

func (p *Publisher) NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error {
	return p.publish(ctx, EventMeetingStatusChanged, ev, dryRun)
}

func (p *Publisher) RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error {
	return p.publish(ctx, EventMessageRelayed, ev, dryRun)
}
