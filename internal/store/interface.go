package store

import (
	"context"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
)

// Tx is the unit of work handed to callbacks. Every read reflects one consistent
// snapshot and every write becomes visible only when the surrounding call commits.
type Tx interface {
	GetParticipant(ctx context.Context, key participant.Key) (*participant.Participant, error)
	GetParticipantByID(ctx context.Context, id int64) (*participant.Participant, error)
	// GetParticipantByContext returns the earliest participant of a conversation context.
	GetParticipantByContext(ctx context.Context, contextID string) (*participant.Participant, error)
	CreateParticipant(ctx context.Context, key participant.Key, displayName string) (*participant.Participant, error)
	// SaveParticipant persists p if its version still matches the stored one and
	// bumps p.Version. A stale version yields ErrConflict.
	SaveParticipant(ctx context.Context, p *participant.Participant) error
	ResolveTopics(ctx context.Context, ids []int64) ([]participant.Topic, error)

	// FindCandidates lists ready participants without a meeting, other than the
	// requester, restricted to the requester's mode when it is online or offline.
	// Results are ordered by prior meetings with the requester, then by id.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)
	HasInProgressMeeting(ctx context.Context, participantID int64) (bool, error)

	CreateMeeting(ctx context.Context, m *meeting.Meeting) error
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	LatestMeetingFor(ctx context.Context, participantID int64) (*meeting.Meeting, error)
	// UpdateMeetingStatus moves a meeting from one status to another. ErrConflict
	// is returned when the meeting is no longer in the from status.
	UpdateMeetingStatus(ctx context.Context, id string, from, to meeting.Status) error
	SetFeedbackAvailable(ctx context.Context, meetingID string, participantID int64, available bool) error
	ClearFeedbackFlags(ctx context.Context, participantID int64) error
	InsertFeedback(ctx context.Context, f meeting.Feedback) error
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	// WithParticipant creates or loads the participant, runs fn inside a
	// transaction and persists the participant when fn succeeds.
	WithParticipant(ctx context.Context, key participant.Key, displayName string, fn func(tx Tx, p *participant.Participant) error) error
	// WithParticipantByContext is WithParticipant for an existing participant
	// looked up by conversation context only.
	WithParticipantByContext(ctx context.Context, contextID string, fn func(tx Tx, p *participant.Participant) error) error
	Save(ctx context.Context, p *participant.Participant) error
	ReadyParticipants(ctx context.Context) ([]participant.SearchProjection, error)
	Topics(ctx context.Context) ([]participant.Topic, error)
}

// MeetingStore persists meetings and their membership.
type MeetingStore interface {
	// WithMeetingForParticipant loads the participant's most recent meeting,
	// whatever its status, and runs fn on the route from that participant's side.
	WithMeetingForParticipant(ctx context.Context, key participant.Key, fn func(tx Tx, r *meeting.Route) error) error
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the full storage port.
type Store interface {
	ParticipantStore
	MeetingStore
	Clear(ctx context.Context) error
}
