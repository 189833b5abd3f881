package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mauv0809/pairup/internal/lifecycle"
	"github.com/mauv0809/pairup/internal/matchmaking"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	tgnotifier "github.com/mauv0809/pairup/internal/notifier/telegram"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	sent     []tgbotapi.MessageConfig
	answered []string
	stopped  bool
}

func newMockAPI() *mockAPI {
	return &mockAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (m *mockAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		m.answered = append(m.answered, cb.CallbackQueryID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockAPI) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func setup(t *testing.T) (*Bot, *mockAPI, *notifier.Mock) {
	t.Helper()
	s := store.NewMemory()
	metr := metrics.NewMock()
	notif := notifier.NewMock()
	p := processor.New(s, matchmaking.New(s, metr), lifecycle.New(s, metr), notif, metr, metrics.NewMockStore())
	api := newMockAPI()
	return New(api, p, false), api, notif
}

func message(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID * 10, FirstName: "User"},
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.Index(text, " "); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: chatID * 10},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (b *Bot) send(t *testing.T, updates ...tgbotapi.Update) {
	t.Helper()
	for _, u := range updates {
		b.HandleUpdate(context.Background(), u)
	}
}

func TestBot_Flow(t *testing.T) {
	bot, api, notif := setup(t)

	bot.send(t, message(1, "/start"))
	assert.Contains(t, api.last(), "/join")

	bot.send(t, message(1, "/join"))
	assert.Contains(t, api.last(), "Welcome aboard")
	bot.send(t, message(1, "/join"))
	assert.Equal(t, "You are already taking part.", api.last())

	bot.send(t, message(1, "/online"))
	assert.Contains(t, api.last(), "meet online")

	bot.send(t, message(1, "/topics"))
	assert.Contains(t, api.last(), "1. F#")

	bot.send(t, message(1, "/topics 1, 2"))
	assert.Contains(t, api.last(), "You are in the pool")

	bot.send(t, message(2, "/join"), message(2, "/online"), message(2, "/topics 2"))
	require.Len(t, notif.NotifyMatchCalls, 1)
	assert.Contains(t, api.last(), "meet online", "a match is announced by the notifier, not as a reply")

	t.Run("free text is relayed", func(t *testing.T) {
		bot.send(t, message(2, "hello there"))
		require.Len(t, notif.RelayMessageCalls, 1)
		assert.Equal(t, "hello there", notif.RelayMessageCalls[0].Text)
		assert.Equal(t, "1", notif.RelayMessageCalls[0].To[0].ContextID)
	})

	t.Run("meeting button completes the meeting", func(t *testing.T) {
		bot.send(t, callback(1, tgnotifier.CallbackHappened))
		require.Len(t, notif.NotifyMeetingStatusCalls, 1)
		assert.Equal(t, "completed", notif.NotifyMeetingStatusCalls[0].Status)
		assert.Contains(t, api.answered, "cb-"+tgnotifier.CallbackHappened)

		bot.send(t, callback(2, tgnotifier.CallbackCancelled))
		assert.Equal(t, "That meeting is already closed.", api.last())
	})

	t.Run("feedback after the meeting", func(t *testing.T) {
		bot.send(t, message(1, "lovely chat"))
		assert.Equal(t, "Thanks for the feedback!", api.last())
		bot.send(t, message(1, "lovely chat"))
		assert.Equal(t, "Use /ready to meet someone new.", api.last())
	})

	t.Run("ready button puts the participant back in the pool", func(t *testing.T) {
		bot.send(t, callback(1, tgnotifier.CallbackReady))
		assert.Contains(t, api.last(), "You are in the pool")
	})

	t.Run("postpone", func(t *testing.T) {
		bot.send(t, message(1, "/postpone"))
		assert.Contains(t, api.last(), "Matchmaking paused")
		bot.send(t, message(1, "/postpone"))
		assert.Contains(t, api.last(), "not taking part")
	})
}

func TestBot_Errors(t *testing.T) {
	bot, api, _ := setup(t)

	bot.send(t, message(3, "anyone?"))
	assert.Equal(t, "You have no meeting yet. Use /join to take part.", api.last())

	bot.send(t, message(3, "/topics one"))
	assert.Equal(t, "Send topic numbers like this: /topics 1,3", api.last())

	bot.send(t, message(3, "/online"))
	assert.Equal(t, "Use /join first.", api.last())

	bot.send(t, message(3, "/dance"))
	assert.Contains(t, api.last(), "Commands:")
}

func TestBot_Run(t *testing.T) {
	bot, api, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- message(1, "/start")
	require.Eventually(t, func() bool { return api.last() != "" }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	api.mu.Lock()
	assert.True(t, api.stopped)
	api.mu.Unlock()
}

func TestParseTopicIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"1,3", []int64{1, 3}, false},
		{" 2 , 5 4", []int64{2, 5, 4}, false},
		{",", nil, true},
		{"a,1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTopicIDs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
