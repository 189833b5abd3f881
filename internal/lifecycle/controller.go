package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
)

var _ Service = (*Controller)(nil)

// Controller implements Service.
type Controller struct {
	store       Store
	metrics     metrics.Metrics
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

type Option func(*Controller)

// WithMaxAttempts bounds how often a conflicting transition is retried.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) { c.maxAttempts = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(s Store, m metrics.Metrics, opts ...Option) *Controller {
	c := &Controller{
		store:       s,
		metrics:     m,
		maxAttempts: store.DefaultAttempts,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) TryCancel(ctx context.Context, meetingID string) (bool, *meeting.Meeting, error) {
	return c.tryFinish(ctx, meetingID, meeting.StatusCancelled)
}

func (c *Controller) TryComplete(ctx context.Context, meetingID string) (bool, *meeting.Meeting, error) {
	return c.tryFinish(ctx, meetingID, meeting.StatusCompleted)
}

func (c *Controller) tryFinish(ctx context.Context, meetingID string, status meeting.Status) (bool, *meeting.Meeting, error) {
	var (
		changed bool
		m       *meeting.Meeting
	)
	err := store.Retry(ctx, c.maxAttempts, func(attempt int) error {
		if attempt > 1 {
			c.metrics.IncConflictRetries()
		}
		return c.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			changed, m, err = c.FinishWithin(ctx, tx, meetingID, status)
			return err
		})
	})
	if err != nil {
		return false, nil, fmt.Errorf("failed to move meeting %s to %s: %w", meetingID, status, err)
	}
	if changed {
		c.metrics.IncMeetingTransition(string(status))
	}
	return changed, m, nil
}

// CancelWithin is FinishWithin with the cancelled status.
func (c *Controller) CancelWithin(ctx context.Context, tx store.Tx, meetingID string, held ...*participant.Participant) (bool, *meeting.Meeting, error) {
	return c.FinishWithin(ctx, tx, meetingID, meeting.StatusCancelled, held...)
}

// CompleteWithin is FinishWithin with the completed status.
func (c *Controller) CompleteWithin(ctx context.Context, tx store.Tx, meetingID string, held ...*participant.Participant) (bool, *meeting.Meeting, error) {
	return c.FinishWithin(ctx, tx, meetingID, meeting.StatusCompleted, held...)
}

// FinishWithin moves the meeting to the terminal status inside tx, releases
// both members and opens feedback for them. Participants the caller already
// loaded in tx must be passed as held so their in-memory copy is the one updated.
func (c *Controller) FinishWithin(ctx context.Context, tx store.Tx, meetingID string, status meeting.Status, held ...*participant.Participant) (bool, *meeting.Meeting, error) {
	m, err := tx.GetMeeting(ctx, meetingID)
	if err != nil {
		return false, nil, err
	}
	from := m.Status
	if !m.Finish(status) {
		log.Debug("Meeting transition ignored", "meetingID", m.ID, "status", from, "requested", status)
		return false, m, nil
	}
	if err := tx.UpdateMeetingStatus(ctx, m.ID, from, m.Status); err != nil {
		return false, nil, err
	}

	for i := range m.Members {
		member := &m.Members[i]
		p, err := c.memberParticipant(ctx, tx, member.ParticipantID, held)
		if err != nil {
			return false, nil, err
		}
		if p.ExitMeeting(m.ID) {
			if err := tx.SaveParticipant(ctx, p); err != nil {
				return false, nil, err
			}
		} else {
			log.Warn("Participant was not attached to the meeting", "meetingID", m.ID, "participant", p.Key.String(), "state", p.State)
		}
		if err := tx.SetFeedbackAvailable(ctx, m.ID, member.ParticipantID, true); err != nil {
			return false, nil, err
		}
		member.FeedbackAvailable = true
	}
	m.UpdatedAt = c.now().UTC()

	log.Info("Meeting finished", "meetingID", m.ID, "status", m.Status)
	return true, m, nil
}

func (c *Controller) memberParticipant(ctx context.Context, tx store.Tx, id int64, held []*participant.Participant) (*participant.Participant, error) {
	for _, p := range held {
		if p != nil && p.ID == id {
			return p, nil
		}
	}
	return tx.GetParticipantByID(ctx, id)
}

func (c *Controller) TrySubmitFeedback(ctx context.Context, meetingID string, key participant.Key, text string) (bool, error) {
	var accepted bool
	err := store.Retry(ctx, c.maxAttempts, func(attempt int) error {
		if attempt > 1 {
			c.metrics.IncConflictRetries()
		}
		return c.store.InTx(ctx, func(tx store.Tx) error {
			p, err := tx.GetParticipant(ctx, key)
			if err != nil {
				return err
			}
			accepted, err = c.SubmitFeedbackWithin(ctx, tx, meetingID, p.ID, text)
			return err
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to submit feedback for meeting %s: %w", meetingID, err)
	}
	if accepted {
		c.metrics.IncFeedbackSubmitted()
	}
	return accepted, nil
}

// SubmitFeedbackWithin records text once per member of a finished meeting.
func (c *Controller) SubmitFeedbackWithin(ctx context.Context, tx store.Tx, meetingID string, participantID int64, text string) (bool, error) {
	m, err := tx.GetMeeting(ctx, meetingID)
	if err != nil {
		return false, err
	}
	member, ok := m.Member(participantID)
	if !ok || !m.IsTerminal() || !member.FeedbackAvailable {
		return false, nil
	}

	f := meeting.Feedback{
		ID:            c.newID(),
		MeetingID:     m.ID,
		ParticipantID: participantID,
		Text:          text,
		CreatedAt:     c.now().UTC(),
	}
	if err := tx.InsertFeedback(ctx, f); err != nil {
		return false, err
	}
	if err := tx.SetFeedbackAvailable(ctx, m.ID, participantID, false); err != nil {
		return false, err
	}
	log.Info("Feedback recorded", "meetingID", m.ID, "participantID", participantID)
	return true, nil
}
