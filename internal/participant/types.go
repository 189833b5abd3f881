package participant

import "time"

// State is the position of a participant in the opt-in state machine.
type State string

const (
	StateInactive  State = "inactive"
	StateActive    State = "active"
	StateReady     State = "ready"
	StateInMeeting State = "in_meeting"
)

// Mode is the participation mode used for matching affinity.
type Mode string

const (
	ModeUnknown Mode = "unknown"
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ParseMode converts user input into a Mode. Only online and offline are accepted.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeOnline:
		return ModeOnline, true
	case ModeOffline:
		return ModeOffline, true
	}
	return ModeUnknown, false
}

// Key identifies a person inside one conversation context.
type Key struct {
	ContextID string `json:"context_id"`
	PersonID  string `json:"person_id"`
}

func (k Key) String() string {
	return k.ContextID + "/" + k.PersonID
}

// Topic is an interest tag a participant wants to talk about.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Participant is one person's matchmaking state within one conversation context.
type Participant struct {
	ID               int64     `json:"id"`
	Key              Key       `json:"key"`
	DisplayName      string    `json:"display_name"`
	State            State     `json:"state"`
	Mode             Mode      `json:"mode"`
	Topics           []Topic   `json:"topics"`
	CurrentMeetingID string    `json:"current_meeting_id,omitempty"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SearchProjection is the read-only view of a ready participant handed to the matchmaker.
type SearchProjection struct {
	ID          int64
	Key         Key
	DisplayName string
	Topics      []Topic
	Mode        Mode
}
