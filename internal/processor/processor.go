package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pairup/internal/events"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
)

// New creates a new Processor.
func New(s Store, matchmaker Matchmaker, lifecycle Lifecycle, notifier Notifier, metrics metrics.Metrics, stats metrics.MetricsStore) *Processor {
	return &Processor{
		store:       s,
		matchmaker:  matchmaker,
		lifecycle:   lifecycle,
		notifier:    notifier,
		metrics:     metrics,
		stats:       stats,
		maxAttempts: store.DefaultAttempts,
	}
}

// WithMaxAttempts changes how often a conflicting command is retried.
func (p *Processor) WithMaxAttempts(n int) *Processor {
	p.maxAttempts = n
	return p
}

func (p *Processor) retry(ctx context.Context, fn func() error) error {
	return store.Retry(ctx, p.maxAttempts, func(attempt int) error {
		if attempt > 1 {
			p.metrics.IncConflictRetries()
		}
		return fn()
	})
}

// update runs fn on the participant identified by key, creating it on first contact.
func (p *Processor) update(ctx context.Context, key participant.Key, displayName string, fn func(tx store.Tx, pt *participant.Participant) (bool, error)) (*Outcome, error) {
	var out *Outcome
	err := p.retry(ctx, func() error {
		return p.store.WithParticipant(ctx, key, displayName, func(tx store.Tx, pt *participant.Participant) error {
			changed, err := fn(tx, pt)
			if err != nil {
				return err
			}
			out = &Outcome{Changed: changed, Participant: pt}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// The store bumped the version on save; hand out a copy detached from it.
	out.Participant = out.Participant.Clone()
	return out, nil
}

// Start registers the participant on first contact. Changed reports whether it was created.
func (p *Processor) Start(ctx context.Context, key participant.Key, displayName string) (*Outcome, error) {
	var out *Outcome
	err := p.retry(ctx, func() error {
		return p.store.InTx(ctx, func(tx store.Tx) error {
			created := false
			pt, err := tx.GetParticipant(ctx, key)
			if errors.Is(err, store.ErrNotFound) {
				pt, err = tx.CreateParticipant(ctx, key, displayName)
				created = true
			}
			if err != nil {
				return err
			}
			out = &Outcome{Changed: created, Participant: pt}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start participant %s: %w", key, err)
	}
	if out.Changed {
		log.Info("Participant registered", "participant", key.String())
	}
	return out, nil
}

// Join opts the participant in.
func (p *Processor) Join(ctx context.Context, key participant.Key, displayName string) (*Outcome, error) {
	out, err := p.update(ctx, key, displayName, func(tx store.Tx, pt *participant.Participant) (bool, error) {
		return pt.OptIn(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join participant %s: %w", key, err)
	}
	return out, nil
}

// Postpone opts the participant out. A meeting still in progress is cancelled
// in the same transaction and both members are told about it.
func (p *Processor) Postpone(ctx context.Context, key participant.Key, dryRun bool) (*Outcome, error) {
	var cancelled *meeting.Meeting
	out, err := p.update(ctx, key, "", func(tx store.Tx, pt *participant.Participant) (bool, error) {
		cancelled = nil
		if pt.State == participant.StateInMeeting {
			changed, m, err := p.lifecycle.CancelWithin(ctx, tx, pt.CurrentMeetingID, pt)
			if err != nil {
				return false, err
			}
			if changed {
				cancelled = m
			}
		}
		return pt.OptOut(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to postpone participant %s: %w", key, err)
	}
	if cancelled != nil {
		out.Meeting = cancelled
		p.meetingFinished(ctx, cancelled, dryRun)
	}
	return out, nil
}

// SetMode chooses online or offline meetings.
func (p *Processor) SetMode(ctx context.Context, key participant.Key, mode participant.Mode) (*Outcome, error) {
	out, err := p.update(ctx, key, "", func(tx store.Tx, pt *participant.Participant) (bool, error) {
		return pt.SetMode(mode), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set mode for participant %s: %w", key, err)
	}
	return out, nil
}

// SubmitTopics records the participant's interests, puts it in the pool and
// looks for a partner straight away.
func (p *Processor) SubmitTopics(ctx context.Context, key participant.Key, topicIDs []int64, dryRun bool) (*Outcome, error) {
	if len(topicIDs) == 0 {
		return nil, ErrNoTopics
	}
	out, err := p.update(ctx, key, "", func(tx store.Tx, pt *participant.Participant) (bool, error) {
		if pt.State != participant.StateActive && pt.State != participant.StateReady {
			return false, nil
		}
		topics, err := tx.ResolveTopics(ctx, topicIDs)
		if err != nil {
			return false, err
		}
		pt.RecordTopics(topics)
		if err := tx.ClearFeedbackFlags(ctx, pt.ID); err != nil {
			return false, err
		}
		pt.MarkReadyToParticipate()
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit topics for participant %s: %w", key, err)
	}
	if err := p.match(ctx, out, dryRun); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadyForMeeting puts an active participant back in the pool and looks for a partner.
// Entering the pool starts a new cycle, so feedback for earlier meetings closes.
func (p *Processor) ReadyForMeeting(ctx context.Context, key participant.Key, dryRun bool) (*Outcome, error) {
	out, err := p.update(ctx, key, "", func(tx store.Tx, pt *participant.Participant) (bool, error) {
		if !pt.MarkReadyToParticipate() {
			return false, nil
		}
		if err := tx.ClearFeedbackFlags(ctx, pt.ID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark participant %s ready: %w", key, err)
	}
	if err := p.match(ctx, out, dryRun); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) match(ctx context.Context, out *Outcome, dryRun bool) error {
	proj, ok := out.Participant.TryGetSearchProjection()
	if !ok {
		return nil
	}
	found, m, err := p.matchmaker.FindMatch(ctx, proj)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	out.Matched = true
	out.Meeting = m
	p.matchCreated(ctx, m, dryRun)

	current, err := p.Participant(ctx, proj.Key)
	if err != nil {
		return err
	}
	out.Participant = current
	return nil
}

func (p *Processor) matchCreated(ctx context.Context, m *meeting.Meeting, dryRun bool) {
	p.stats.Increment(ctx, statMatchesCreated)
	if err := p.notifier.NotifyMatch(ctx, events.NewMatchFound(m), dryRun); err != nil {
		log.Error("Failed to notify match", "error", err, "meetingID", m.ID)
	}
}

func (p *Processor) meetingFinished(ctx context.Context, m *meeting.Meeting, dryRun bool) {
	p.metrics.IncMeetingTransition(string(m.Status))
	if m.Status == meeting.StatusCompleted {
		p.stats.Increment(ctx, statMeetingsCompleted)
	} else {
		p.stats.Increment(ctx, statMeetingsCancelled)
	}
	if err := p.notifier.NotifyMeetingStatus(ctx, events.NewMeetingStatusChanged(m), dryRun); err != nil {
		log.Error("Failed to notify meeting status", "error", err, "meetingID", m.ID)
	}
}

// MeetingHappened completes the participant's current meeting.
func (p *Processor) MeetingHappened(ctx context.Context, key participant.Key, dryRun bool) (*Outcome, error) {
	return p.finishMeeting(ctx, key, meeting.StatusCompleted, dryRun)
}

// MeetingCancelled cancels the participant's current meeting.
func (p *Processor) MeetingCancelled(ctx context.Context, key participant.Key, dryRun bool) (*Outcome, error) {
	return p.finishMeeting(ctx, key, meeting.StatusCancelled, dryRun)
}

func (p *Processor) finishMeeting(ctx context.Context, key participant.Key, status meeting.Status, dryRun bool) (*Outcome, error) {
	var out *Outcome
	err := p.retry(ctx, func() error {
		return p.store.WithMeetingForParticipant(ctx, key, func(tx store.Tx, r *meeting.Route) error {
			changed, m, err := p.lifecycle.FinishWithin(ctx, tx, r.Meeting.ID, status)
			if err != nil {
				return err
			}
			out = &Outcome{Changed: changed, Meeting: m}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move meeting of %s to %s: %w", key, status, err)
	}
	if out.Changed {
		p.meetingFinished(ctx, out.Meeting, dryRun)
	}
	return out, nil
}

// HandleMessage routes free text. During a meeting it is relayed to the other
// member; after the meeting it is taken as feedback once.
func (p *Processor) HandleMessage(ctx context.Context, key participant.Key, text string, dryRun bool) (*Outcome, error) {
	var (
		out     *Outcome
		relayed *events.MessageRelayed
	)
	err := p.retry(ctx, func() error {
		relayed = nil
		return p.store.WithMeetingForParticipant(ctx, key, func(tx store.Tx, r *meeting.Route) error {
			out = &Outcome{Meeting: r.Meeting, Message: MessageIgnored}
			if !r.Meeting.IsTerminal() {
				ev := events.NewMessageRelayed(r, text)
				relayed = &ev
				out.Message = MessageRelayed
				return nil
			}
			if !r.Source.FeedbackAvailable {
				return nil
			}
			accepted, err := p.lifecycle.SubmitFeedbackWithin(ctx, tx, r.Meeting.ID, r.Source.ParticipantID, text)
			if err != nil {
				return err
			}
			if accepted {
				out.Changed = true
				out.Message = MessageFeedback
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to handle message from %s: %w", key, err)
	}

	switch out.Message {
	case MessageRelayed:
		p.stats.Increment(ctx, statMessagesRelayed)
		if err := p.notifier.RelayMessage(ctx, *relayed, dryRun); err != nil {
			log.Error("Failed to relay message", "error", err, "meetingID", relayed.MeetingID)
		}
		out.Changed = true
	case MessageFeedback:
		p.metrics.IncFeedbackSubmitted()
		p.stats.Increment(ctx, statFeedbackSubmitted)
	default:
		log.Debug("Message ignored", "participant", key.String(), "meetingID", out.Meeting.ID)
	}
	return out, nil
}

// Sweep looks for partners for everyone still waiting in the pool.
func (p *Processor) Sweep(ctx context.Context, dryRun bool) (int, error) {
	log.Info("Starting matchmaking sweep...")
	ready, err := p.store.ReadyParticipants(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ready participants: %w", err)
	}
	if len(ready) == 0 {
		log.Info("No participants waiting.")
		return 0, nil
	}

	created := 0
	for _, proj := range ready {
		found, m, err := p.matchmaker.FindMatch(ctx, proj)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return created, err
			}
			log.Error("Failed to find match during sweep", "error", err, "participant", proj.Key.String())
			continue
		}
		if found {
			created++
			p.matchCreated(ctx, m, dryRun)
		}
	}
	log.Info("Matchmaking sweep finished.", "waiting", len(ready), "matches", created)
	return created, nil
}

func (p *Processor) Topics(ctx context.Context) ([]participant.Topic, error) {
	return p.store.Topics(ctx)
}

// Participant returns the stored participant.
func (p *Processor) Participant(ctx context.Context, key participant.Key) (*participant.Participant, error) {
	var out *participant.Participant
	err := p.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.GetParticipant(ctx, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %s: %w", key, err)
	}
	return out, nil
}

// ParticipantInContext returns the earliest participant of a conversation context.
func (p *Processor) ParticipantInContext(ctx context.Context, contextID string) (*participant.Participant, error) {
	var out *participant.Participant
	err := p.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.GetParticipantByContext(ctx, contextID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get participant in context %s: %w", contextID, err)
	}
	return out, nil
}

// Stats returns the durable counters.
func (p *Processor) Stats(ctx context.Context) (map[string]int, error) {
	return p.stats.GetAll(ctx)
}

// Clear removes every participant, meeting and counter.
func (p *Processor) Clear(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
