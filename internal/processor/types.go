package processor

import (
	"errors"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/participant"
)

// ErrNoTopics is returned when topics are submitted without any topic id.
var ErrNoTopics = errors.New("at least one topic is required")

// Processor handles the matchmaking commands issued by participants.
type Processor struct {
	store       Store
	matchmaker  Matchmaker
	lifecycle   Lifecycle
	notifier    Notifier
	metrics     metrics.Metrics
	stats       metrics.MetricsStore
	maxAttempts int
}

// MessageResult says what happened to a free-text message.
type MessageResult string

const (
	MessageRelayed  MessageResult = "relayed"
	MessageFeedback MessageResult = "feedback"
	MessageIgnored  MessageResult = "ignored"
)

// Outcome describes the effect of a command.
type Outcome struct {
	// Changed reports whether the requested transition applied.
	Changed     bool                     `json:"changed"`
	Participant *participant.Participant `json:"participant,omitempty"`
	// Matched is set when the command led to a new meeting.
	Matched bool             `json:"matched"`
	Meeting *meeting.Meeting `json:"meeting,omitempty"`
	Message MessageResult    `json:"message,omitempty"`
}

// Durable counter keys kept in the metrics store.
const (
	statMatchesCreated    = "matches_created"
	statMeetingsCompleted = "meetings_completed"
	statMeetingsCancelled = "meetings_cancelled"
	statFeedbackSubmitted = "feedback_submitted"
	statMessagesRelayed   = "messages_relayed"
)
