package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pairup/internal/events"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/slack-go/slack"
)

const channel = "slack"

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier announces matches and meeting outcomes in a Slack channel.
// Private messages between members are never posted there.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncNotifFailed(channel)
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotifSent(channel)
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error {
	_, _, err := s.sendMessage(ctx, s.formatMatchFound(ev), dryRun)
	return err
}

func (s *Notifier) NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error {
	_, _, err := s.sendMessage(ctx, s.formatMeetingStatus(ev), dryRun)
	return err
}

// RelayMessage is a no-op: conversations stay between the members.
func (s *Notifier) RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error {
	log.Debug("Not relaying private message to Slack", "meetingID", ev.MeetingID)
	return nil
}

func names(parties []events.Party) string {
	out := make([]string, 0, len(parties))
	for _, p := range parties {
		name := p.DisplayName
		if name == "" {
			name = p.PersonID
		}
		out = append(out, name)
	}
	return strings.Join(out, " & ")
}

// formatMatchFound creates the announcement for a new pair using Block Kit.
func (s *Notifier) formatMatchFound(ev events.MatchFound) slack.Message {
	blocks := make([]slack.Block, 0, 3)

	headerText := slack.NewTextBlockObject("plain_text", "🤝 New pair matched!", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s are meeting up.", names(ev.Parties))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	contextText := slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Meeting `%s`", ev.MeetingID), false, false)
	blocks = append(blocks, slack.NewContextBlock("", contextText))

	return slack.NewBlockMessage(blocks...)
}

// formatMeetingStatus creates the message for a cancelled or completed meeting.
func (s *Notifier) formatMeetingStatus(ev events.MeetingStatusChanged) slack.Message {
	blocks := make([]slack.Block, 0, 2)

	var header, details string
	switch ev.Status {
	case "completed":
		header = "✅ Meeting happened!"
		details = fmt.Sprintf("%s met. Feedback is open for both of them.", names(ev.Parties))
	case "cancelled":
		header = "❌ Meeting cancelled"
		details = fmt.Sprintf("%s did not meet this time.", names(ev.Parties))
	default:
		header = "Meeting updated"
		details = fmt.Sprintf("%s: %s", names(ev.Parties), ev.Status)
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", header, true, false)))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", details, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}
