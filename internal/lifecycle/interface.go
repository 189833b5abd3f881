package lifecycle

import (
	"context"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
)

// Store defines the storage operations required by the controller.
type Store interface {
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
}

// Service applies cancel, complete and feedback transitions to meetings.
// Every Try method reports false without error when the transition does not apply.
type Service interface {
	TryCancel(ctx context.Context, meetingID string) (bool, *meeting.Meeting, error)
	TryComplete(ctx context.Context, meetingID string) (bool, *meeting.Meeting, error)
	TrySubmitFeedback(ctx context.Context, meetingID string, key participant.Key, text string) (bool, error)

	CancelWithin(ctx context.Context, tx store.Tx, meetingID string, held ...*participant.Participant) (bool, *meeting.Meeting, error)
	CompleteWithin(ctx context.Context, tx store.Tx, meetingID string, held ...*participant.Participant) (bool, *meeting.Meeting, error)
	FinishWithin(ctx context.Context, tx store.Tx, meetingID string, status meeting.Status, held ...*participant.Participant) (bool, *meeting.Meeting, error)
	SubmitFeedbackWithin(ctx context.Context, tx store.Tx, meetingID string, participantID int64, text string) (bool, error)
}
