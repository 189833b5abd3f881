package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	tgnotifier "github.com/mauv0809/pairup/internal/notifier/telegram"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/store"
)

const helpText = `Commands:
/join - take part in matchmaking
/online or /offline - how you would like to meet
/topics - list topics, /topics 1,3 - pick yours and get matched
/ready - look for another partner after a meeting
/happened or /cancelled - tell me how your meeting went
/postpone - pause matchmaking

While you are in a meeting, anything you write is passed on to your partner.`

// Bot turns Telegram updates into processor commands.
type Bot struct {
	api       botAPI
	processor Processor
	dryRun    bool
}

// NewAPI connects to the Telegram bot API with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	log.Info("Authorized on Telegram", "account", api.Self.UserName)
	return api, nil
}

func New(api botAPI, p Processor, dryRun bool) *Bot {
	return &Bot{api: api, processor: p, dryRun: dryRun}
}

// Run long-polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Info("Telegram bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info("Telegram bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func keyOf(chatID int64, user *tgbotapi.User) participant.Key {
	return participant.Key{
		ContextID: strconv.FormatInt(chatID, 10),
		PersonID:  strconv.FormatInt(user.ID, 10),
	}
}

func nameOf(user *tgbotapi.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return user.UserName
	}
	return name
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	key := keyOf(message.Chat.ID, message.From)
	var (
		reply string
		err   error
	)
	if message.IsCommand() {
		reply, err = b.handleCommand(ctx, key, nameOf(message.From), message.Command(), message.CommandArguments())
	} else {
		reply, err = b.handleText(ctx, key, message.Text)
	}
	if err != nil {
		reply = b.errorReply(err, key)
	}
	b.reply(message.Chat.ID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, key participant.Key, name, command, args string) (string, error) {
	log.Debug("Telegram command", "command", command, "participant", key.String())
	switch command {
	case "start", "help":
		if _, err := b.processor.Start(ctx, key, name); err != nil {
			return "", err
		}
		return "Hi " + name + "! I pair people up for a conversation.\n\n" + helpText, nil
	case "join":
		out, err := b.processor.Join(ctx, key, name)
		if err != nil {
			return "", err
		}
		if !out.Changed {
			return "You are already taking part.", nil
		}
		return "Welcome aboard! Tell me whether you prefer to meet /online or /offline.", nil
	case "postpone":
		out, err := b.processor.Postpone(ctx, key, b.dryRun)
		if err != nil {
			return "", err
		}
		if !out.Changed {
			return "You are not taking part right now. Use /join to come back.", nil
		}
		return "Matchmaking paused. Use /join whenever you want to come back.", nil
	case "online", "offline":
		mode, _ := participant.ParseMode(command)
		out, err := b.processor.SetMode(ctx, key, mode)
		if err != nil {
			return "", err
		}
		if !out.Changed {
			return "Use /join first.", nil
		}
		return fmt.Sprintf("Got it, you will meet %s. Now pick some /topics.", command), nil
	case "topics":
		if strings.TrimSpace(args) == "" {
			return b.listTopics(ctx)
		}
		ids, err := ParseTopicIDs(args)
		if err != nil {
			return "Send topic numbers like this: /topics 1,3", nil
		}
		out, err := b.processor.SubmitTopics(ctx, key, ids, b.dryRun)
		if err != nil {
			return "", err
		}
		return b.readyReply(out, "Use /join first."), nil
	case "ready":
		out, err := b.processor.ReadyForMeeting(ctx, key, b.dryRun)
		if err != nil {
			return "", err
		}
		return b.readyReply(out, "You can only look for a partner when you are not in a meeting."), nil
	case "happened":
		out, err := b.processor.MeetingHappened(ctx, key, b.dryRun)
		if err != nil {
			return "", err
		}
		if !out.Changed {
			return "That meeting is already closed.", nil
		}
		return "", nil
	case "cancelled", "cancel":
		out, err := b.processor.MeetingCancelled(ctx, key, b.dryRun)
		if err != nil {
			return "", err
		}
		if !out.Changed {
			return "That meeting is already closed.", nil
		}
		return "", nil
	}
	return helpText, nil
}

// readyReply answers a command that may put the participant in the pool.
// A successful match is announced by the notifier, so nothing is added here.
func (b *Bot) readyReply(out *processor.Outcome, refused string) string {
	switch {
	case out.Matched:
		return ""
	case out.Participant != nil && out.Participant.State == participant.StateReady:
		return "You are in the pool. I will message you as soon as I find a partner."
	}
	return refused
}

func (b *Bot) listTopics(ctx context.Context) (string, error) {
	topics, err := b.processor.Topics(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("Pick the topics you would like to talk about, e.g. /topics 1,3\n")
	for _, t := range topics {
		fmt.Fprintf(&sb, "\n%d. %s", t.ID, t.Name)
	}
	return sb.String(), nil
}

func (b *Bot) handleText(ctx context.Context, key participant.Key, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := b.processor.HandleMessage(ctx, key, text, b.dryRun)
	if err != nil {
		return "", err
	}
	switch out.Message {
	case processor.MessageFeedback:
		return "Thanks for the feedback!", nil
	case processor.MessageIgnored:
		return "Use /ready to meet someone new.", nil
	}
	return "", nil
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.From == nil {
		return
	}
	key := keyOf(query.Message.Chat.ID, query.From)

	var (
		reply string
		err   error
	)
	switch query.Data {
	case tgnotifier.CallbackHappened:
		reply, err = b.handleCommand(ctx, key, "", "happened", "")
	case tgnotifier.CallbackCancelled:
		reply, err = b.handleCommand(ctx, key, "", "cancelled", "")
	case tgnotifier.CallbackReady:
		reply, err = b.handleCommand(ctx, key, "", "ready", "")
	default:
		log.Warn("Unknown callback data", "data", query.Data)
	}
	if err != nil {
		reply = b.errorReply(err, key)
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Error("Failed to answer callback", "error", err)
	}
	b.reply(query.Message.Chat.ID, reply)
}

func (b *Bot) errorReply(err error, key participant.Key) string {
	if errors.Is(err, store.ErrNotFound) {
		return "You have no meeting yet. Use /join to take part."
	}
	if errors.Is(err, processor.ErrNoTopics) {
		return "Pick at least one topic."
	}
	log.Error("Failed to handle Telegram update", "error", err, "participant", key.String())
	return "Sorry, something went wrong. Please try again."
}

func (b *Bot) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	if b.dryRun {
		log.Info("[Dry Run] Would reply on Telegram", "chat", chatID, "text", text)
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error("Failed to send Telegram reply", "error", err, "chat", chatID)
	}
}

// ParseTopicIDs reads a comma or space separated list of topic ids.
func ParseTopicIDs(args string) ([]int64, error) {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ',' || r == ' '
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid topic id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, processor.ErrNoTopics
	}
	return ids, nil
}
