package store

import (
	"errors"
	"fmt"

	"github.com/mauv0809/pairup/internal/participant"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent modification")
)

// NotFoundError reports a missing participant, meeting or topic.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// CandidateQuery selects possible partners for a requester.
type CandidateQuery struct {
	RequesterID int64
	Mode        participant.Mode
}

// Candidate is an eligible partner and the number of meetings it already had with the requester.
// Topics are not loaded on candidates.
type Candidate struct {
	Participant   *participant.Participant
	PriorMeetings int
}
