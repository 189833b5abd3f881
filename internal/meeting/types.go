package meeting

import (
	"time"

	"github.com/mauv0809/pairup/internal/participant"
)

// Status is the lifecycle state of a meeting. Only StatusInProgress is non-terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

// Member is one participant's slot in a meeting.
type Member struct {
	ParticipantID     int64           `json:"participant_id"`
	Key               participant.Key `json:"key"`
	DisplayName       string          `json:"display_name"`
	FeedbackAvailable bool            `json:"feedback_available"`
}

// Meeting pairs exactly two participants.
type Meeting struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Members   [2]Member `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Route is a meeting seen from the member that issued the current operation.
type Route struct {
	Meeting *Meeting
	Source  Member
	Others  []Member
}

// Feedback is free text left by a member after the meeting ended.
type Feedback struct {
	ID            string
	MeetingID     string
	ParticipantID int64
	Text          string
	CreatedAt     time.Time
}
