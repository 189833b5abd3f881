package pubsub

import (
	"context"
	"testing"

	"github.com/mauv0809/pairup/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	client := NewMock()
	p := NewPublisher(client)

	require.NoError(t, p.NotifyMatch(ctx, events.MatchFound{MeetingID: "m-1"}, false))
	require.NoError(t, p.NotifyMeetingStatus(ctx, events.MeetingStatusChanged{MeetingID: "m-1", Status: "cancelled"}, false))
	require.NoError(t, p.RelayMessage(ctx, events.MessageRelayed{MeetingID: "m-1", Text: "hi"}, false))

	require.Len(t, client.SendMessageCalls, 3)
	assert.Equal(t, EventMatchFound, client.SendMessageCalls[0].Topic)
	assert.Equal(t, EventMeetingStatusChanged, client.SendMessageCalls[1].Topic)
	assert.Equal(t, EventMessageRelayed, client.SendMessageCalls[2].Topic)
	assert.Equal(t, events.MessageRelayed{MeetingID: "m-1", Text: "hi"}, client.SendMessageCalls[2].Data)

	payloads := client.Payloads(EventMeetingStatusChanged)
	require.Len(t, payloads, 1)
	var ev events.MeetingStatusChanged
	require.NoError(t, client.ProcessMessage(payloads[0], &ev))
	assert.Equal(t, "cancelled", ev.Status)
}

func TestPublisher_SendFailure(t *testing.T) {
	client := NewMock()
	client.SendMessageFunc = func(topic EventType, data any) error {
		return assert.AnError
	}
	p := NewPublisher(client)

	assert.ErrorIs(t, p.NotifyMatch(context.Background(), events.MatchFound{MeetingID: "m-1"}, false), assert.AnError)
	assert.Empty(t, client.SendMessageCalls)
}

func TestPublisher_DryRun(t *testing.T) {
	client := NewMock()
	p := NewPublisher(client)

	require.NoError(t, p.NotifyMatch(context.Background(), events.MatchFound{MeetingID: "m-1"}, true))
	assert.Empty(t, client.SendMessageCalls)
}

func TestProcessMessage(t *testing.T) {
	data, err := msgpack.Marshal(events.MessageRelayed{MeetingID: "m-1", Text: "hi"})
	require.NoError(t, err)

	var ev events.MessageRelayed
	require.NoError(t, NewMock().ProcessMessage(data, &ev))
	assert.Equal(t, "hi", ev.Text)

	assert.Error(t, NewMock().ProcessMessage([]byte{0xc1}, &ev))
}
