package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/processor"
)

// Processor is the set of commands the bot forwards.
type Processor interface {
	Start(ctx context.Context, key participant.Key, displayName string) (*processor.Outcome, error)
	Join(ctx context.Context, key participant.Key, displayName string) (*processor.Outcome, error)
	Postpone(ctx context.Context, key participant.Key, dryRun bool) (*processor.Outcome, error)
	SetMode(ctx context.Context, key participant.Key, mode participant.Mode) (*processor.Outcome, error)
	SubmitTopics(ctx context.Context, key participant.Key, topicIDs []int64, dryRun bool) (*processor.Outcome, error)
	ReadyForMeeting(ctx context.Context, key participant.Key, dryRun bool) (*processor.Outcome, error)
	MeetingHappened(ctx context.Context, key participant.Key, dryRun bool) (*processor.Outcome, error)
	MeetingCancelled(ctx context.Context, key participant.Key, dryRun bool) (*processor.Outcome, error)
	HandleMessage(ctx context.Context, key participant.Key, text string, dryRun bool) (*processor.Outcome, error)
	Topics(ctx context.Context) ([]participant.Topic, error)
}

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ Processor = (*processor.Processor)(nil)
