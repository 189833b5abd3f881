package notifier

import (
	"context"
	"errors"

	"github.com/mauv0809/pairup/internal/events"
)

// Notifier defines a high-level interface for reporting matchmaking events.
// This decouples the rest of the application from the specific provider (Slack, Telegram, Pub/Sub).
type Notifier interface {
	// NotifyMatch tells both parties about their new meeting.
	NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error
	// NotifyMeetingStatus reports a cancel or complete transition.
	NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error
	// RelayMessage forwards free text between meeting members.
	RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error
}

// Multi fans every call out to all notifiers and joins their errors.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyMatch(ctx, ev, dryRun))
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyMeetingStatus(ctx, ev, dryRun))
	}
	return errors.Join(errs...)
}

func (m Multi) RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.RelayMessage(ctx, ev, dryRun))
	}
	return errors.Join(errs...)
}
