package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mauv0809/pairup/internal/events"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
)

const channel = "telegram"

// Callback data carried by the inline buttons sent with notifications.
const (
	CallbackHappened  = "meeting:happened"
	CallbackCancelled = "meeting:cancelled"
	CallbackReady     = "participant:ready"
)

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier writes to each party's private chat. The conversation context id
// of a participant is its Telegram chat id.
type Notifier struct {
	api     sender
	metrics metrics.Metrics
}

// NewNotifier creates a Notifier on top of a bot API (or anything that can send).
func NewNotifier(api sender, metrics metrics.Metrics) *Notifier {
	return &Notifier{api: api, metrics: metrics}
}

func (n *Notifier) send(ctx context.Context, contextID string, text string, markup *tgbotapi.InlineKeyboardMarkup, dryRun bool) error {
	if dryRun {
		log.Info("[Dry Run] Would send Telegram message", "chat", contextID, "text", text)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(contextID, 10, 64)
	if err != nil {
		n.metrics.IncNotifFailed(channel)
		return fmt.Errorf("context %q is not a telegram chat id: %w", contextID, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := n.api.Send(msg); err != nil {
		n.metrics.IncNotifFailed(channel)
		log.Error("Failed to send Telegram message", "error", err, "chat", chatID)
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.metrics.IncNotifSent(channel)
	log.Debug("Sent Telegram message", "chat", chatID)
	return nil
}

func displayName(p events.Party) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.PersonID
}

func meetingButtons() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("We met ✅", CallbackHappened),
			tgbotapi.NewInlineKeyboardButtonData("Cancel ❌", CallbackCancelled),
		),
	)
	return &markup
}

func readyButton() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Find me someone new", CallbackReady),
		),
	)
	return &markup
}

func (n *Notifier) NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error {
	var errs []error
	for _, p := range ev.Parties {
		other, ok := ev.Counterpart(p.ParticipantID)
		if !ok {
			continue
		}
		text := fmt.Sprintf("You have been paired with %s! Anything you write here is passed on to them. Let me know how it went.", displayName(other))
		errs = append(errs, n.send(ctx, p.ContextID, text, meetingButtons(), dryRun))
	}
	return errors.Join(errs...)
}

func (n *Notifier) NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error {
	var text string
	switch ev.Status {
	case "completed":
		text = "Glad you met! Your next message will be kept as feedback about the meeting."
	case "cancelled":
		text = "The meeting was cancelled. Your next message will be kept as feedback, if you have any."
	default:
		text = fmt.Sprintf("Your meeting is now %s.", ev.Status)
	}
	var errs []error
	for _, p := range ev.Parties {
		errs = append(errs, n.send(ctx, p.ContextID, text, readyButton(), dryRun))
	}
	return errors.Join(errs...)
}

func (n *Notifier) RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error {
	text := fmt.Sprintf("%s: %s", displayName(ev.From), ev.Text)
	var errs []error
	for _, p := range ev.To {
		errs = append(errs, n.send(ctx, p.ContextID, text, nil, dryRun))
	}
	return errors.Join(errs...)
}
