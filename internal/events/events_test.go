package events

import (
	"testing"
	"time"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func testMeeting() *meeting.Meeting {
	a := &participant.Participant{ID: 1, Key: participant.Key{ContextID: "100", PersonID: "u1"}, DisplayName: "Ann"}
	b := &participant.Participant{ID: 2, Key: participant.Key{ContextID: "200", PersonID: "u2"}, DisplayName: "Bob"}
	return meeting.New("m-1", a, b, time.Date(2025, 7, 9, 20, 0, 0, 0, time.UTC))
}

func TestNewMatchFound(t *testing.T) {
	ev := NewMatchFound(testMeeting())

	assert.Equal(t, "m-1", ev.MeetingID)
	require.Len(t, ev.Parties, 2)
	assert.Equal(t, Party{ParticipantID: 1, ContextID: "100", PersonID: "u1", DisplayName: "Ann"}, ev.Parties[0])

	other, ok := ev.Counterpart(1)
	require.True(t, ok)
	assert.Equal(t, "Bob", other.DisplayName)
}

func TestNewMessageRelayed(t *testing.T) {
	route, ok := testMeeting().RouteFor(2)
	require.True(t, ok)

	ev := NewMessageRelayed(route, "hello")
	assert.Equal(t, "Bob", ev.From.DisplayName)
	require.Len(t, ev.To, 1)
	assert.Equal(t, "100", ev.To[0].ContextID)
	assert.Equal(t, "hello", ev.Text)
}

func TestMeetingStatusChanged_Msgpack(t *testing.T) {
	m := testMeeting()
	require.True(t, m.Complete())
	ev := NewMeetingStatusChanged(m)

	data, err := msgpack.Marshal(ev)
	require.NoError(t, err)
	var decoded MeetingStatusChanged
	require.NoError(t, msgpack.Unmarshal(data, &decoded))

	assert.Equal(t, "completed", decoded.Status)
	assert.Equal(t, ev.Parties, decoded.Parties)
	assert.True(t, ev.ChangedAt.Equal(decoded.ChangedAt))
}
