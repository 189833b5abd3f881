// Package events holds the payloads handed to notifiers and published on Pub/Sub.
package events

import (
	"time"

	"github.com/mauv0809/pairup/internal/meeting"
)

// Party is one side of a meeting as seen by the outside world.
type Party struct {
	ParticipantID int64  `json:"participant_id" msgpack:"participant_id"`
	ContextID     string `json:"context_id" msgpack:"context_id"`
	PersonID      string `json:"person_id" msgpack:"person_id"`
	DisplayName   string `json:"display_name" msgpack:"display_name"`
}

// MatchFound is emitted once a meeting has been created.
type MatchFound struct {
	MeetingID string    `json:"meeting_id" msgpack:"meeting_id"`
	Parties   []Party   `json:"parties" msgpack:"parties"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// MeetingStatusChanged is emitted on every cancel or complete transition.
type MeetingStatusChanged struct {
	MeetingID string    `json:"meeting_id" msgpack:"meeting_id"`
	Status    string    `json:"status" msgpack:"status"`
	Parties   []Party   `json:"parties" msgpack:"parties"`
	ChangedAt time.Time `json:"changed_at" msgpack:"changed_at"`
}

// MessageRelayed carries free text from one member of an in-progress meeting to the others.
type MessageRelayed struct {
	MeetingID string  `json:"meeting_id" msgpack:"meeting_id"`
	From      Party   `json:"from" msgpack:"from"`
	To        []Party `json:"to" msgpack:"to"`
	Text      string  `json:"text" msgpack:"text"`
}

func partyOf(m meeting.Member) Party {
	return Party{
		ParticipantID: m.ParticipantID,
		ContextID:     m.Key.ContextID,
		PersonID:      m.Key.PersonID,
		DisplayName:   m.DisplayName,
	}
}

func parties(m *meeting.Meeting) []Party {
	out := make([]Party, 0, len(m.Members))
	for _, member := range m.Members {
		out = append(out, partyOf(member))
	}
	return out
}

func NewMatchFound(m *meeting.Meeting) MatchFound {
	return MatchFound{
		MeetingID: m.ID,
		Parties:   parties(m),
		CreatedAt: m.CreatedAt,
	}
}

func NewMeetingStatusChanged(m *meeting.Meeting) MeetingStatusChanged {
	return MeetingStatusChanged{
		MeetingID: m.ID,
		Status:    string(m.Status),
		Parties:   parties(m),
		ChangedAt: m.UpdatedAt,
	}
}

func NewMessageRelayed(r *meeting.Route, text string) MessageRelayed {
	to := make([]Party, 0, len(r.Others))
	for _, other := range r.Others {
		to = append(to, partyOf(other))
	}
	return MessageRelayed{
		MeetingID: r.Meeting.ID,
		From:      partyOf(r.Source),
		To:        to,
		Text:      text,
	}
}

// Counterpart returns the first party other than participantID.
func (e MatchFound) Counterpart(participantID int64) (Party, bool) {
	for _, p := range e.Parties {
		if p.ParticipantID != participantID {
			return p, true
		}
	}
	return Party{}, false
}
