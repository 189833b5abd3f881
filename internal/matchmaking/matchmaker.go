package matchmaking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
)

var _ Service = (*Matchmaker)(nil)

// New creates a Matchmaker. The default policy never pairs the same people twice.
func New(s Store, m metrics.Metrics, opts ...Option) *Matchmaker {
	mm := &Matchmaker{
		store:       s,
		metrics:     m,
		policy:      PolicyNeverRematch,
		maxAttempts: store.DefaultAttempts,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(mm)
	}
	return mm
}

func (mm *Matchmaker) Policy() Policy {
	return mm.policy
}

func (mm *Matchmaker) FindMatch(ctx context.Context, requester participant.SearchProjection) (bool, *meeting.Meeting, error) {
	startTime := time.Now()
	defer func() {
		mm.metrics.ObserveMatchDuration(time.Since(startTime).Seconds())
	}()

	var (
		found bool
		m     *meeting.Meeting
	)
	err := store.Retry(ctx, mm.maxAttempts, func(attempt int) error {
		if attempt > 1 {
			mm.metrics.IncConflictRetries()
		}
		found, m = false, nil
		return mm.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			found, m, err = mm.FindMatchWithin(ctx, tx, requester)
			return err
		})
	})
	if err != nil {
		return false, nil, fmt.Errorf("failed to find match for participant %d: %w", requester.ID, err)
	}
	if found {
		mm.metrics.IncMatchesCreated()
		log.Info("Match found", "meetingID", m.ID, "a", m.Members[0].Key.String(), "b", m.Members[1].Key.String())
	} else {
		mm.metrics.IncMatchMisses()
		log.Debug("No eligible candidate", "participant", requester.Key.String(), "mode", requester.Mode)
	}
	return found, m, nil
}

func (mm *Matchmaker) FindMatchWithin(ctx context.Context, tx store.Tx, requester participant.SearchProjection) (bool, *meeting.Meeting, error) {
	// The projection may be stale; everything below is decided on the
	// transaction's snapshot.
	self, err := tx.GetParticipantByID(ctx, requester.ID)
	if err != nil {
		return false, nil, err
	}
	if self.State != participant.StateReady || self.CurrentMeetingID != "" {
		log.Debug("Requester is no longer ready", "participant", self.Key.String(), "state", self.State)
		return false, nil, nil
	}
	busy, err := tx.HasInProgressMeeting(ctx, self.ID)
	if err != nil {
		return false, nil, err
	}
	if busy {
		return false, nil, nil
	}

	candidates, err := tx.FindCandidates(ctx, store.CandidateQuery{RequesterID: self.ID, Mode: self.Mode})
	if err != nil {
		return false, nil, err
	}

	for _, c := range mm.rank(self, candidates) {
		partner, err := tx.GetParticipantByID(ctx, c.Participant.ID)
		if err != nil {
			return false, nil, err
		}
		if !eligible(self, partner) {
			continue
		}
		m, err := mm.pair(ctx, tx, self, partner)
		if err != nil {
			return false, nil, err
		}
		return true, m, nil
	}
	return false, nil, nil
}

// rank applies the rematch policy to candidates.
func (mm *Matchmaker) rank(self *participant.Participant, candidates []store.Candidate) []store.Candidate {
	ranked := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Participant.ID == self.ID {
			continue
		}
		if mm.policy == PolicyNeverRematch && c.PriorMeetings > 0 {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorMeetings < ranked[j].PriorMeetings
	})
	return ranked
}

func eligible(self, partner *participant.Participant) bool {
	if partner.ID == self.ID || partner.State != participant.StateReady || partner.CurrentMeetingID != "" {
		return false
	}
	if self.Mode == participant.ModeOnline || self.Mode == participant.ModeOffline {
		return partner.Mode == self.Mode
	}
	return true
}

func (mm *Matchmaker) pair(ctx context.Context, tx store.Tx, a, b *participant.Participant) (*meeting.Meeting, error) {
	m := meeting.New(mm.newID(), a, b, mm.now().UTC())
	if err := tx.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}
	for _, p := range []*participant.Participant{a, b} {
		if err := tx.ClearFeedbackFlags(ctx, p.ID); err != nil {
			return nil, err
		}
		if !p.EnterMeeting(m.ID) {
			return nil, fmt.Errorf("participant %d cannot enter meeting %s from state %s", p.ID, m.ID, p.State)
		}
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return nil, err
		}
	}
	return m, nil
}
