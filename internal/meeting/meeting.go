package meeting

import (
	"time"

	"github.com/mauv0809/pairup/internal/participant"
)

// New creates an in-progress meeting between a and b.
func New(id string, a, b *participant.Participant, now time.Time) *Meeting {
	return &Meeting{
		ID:     id,
		Status: StatusInProgress,
		Members: [2]Member{
			memberOf(a),
			memberOf(b),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func memberOf(p *participant.Participant) Member {
	return Member{ParticipantID: p.ID, Key: p.Key, DisplayName: p.DisplayName}
}

func (m *Meeting) IsTerminal() bool {
	return m.Status != StatusInProgress
}

// Cancel moves an in-progress meeting to cancelled.
func (m *Meeting) Cancel() bool {
	return m.finish(StatusCancelled)
}

// Complete moves an in-progress meeting to completed.
func (m *Meeting) Complete() bool {
	return m.finish(StatusCompleted)
}

// Finish applies the terminal transition named by status.
func (m *Meeting) Finish(status Status) bool {
	switch status {
	case StatusCancelled:
		return m.Cancel()
	case StatusCompleted:
		return m.Complete()
	}
	return false
}

func (m *Meeting) finish(status Status) bool {
	if m.IsTerminal() {
		return false
	}
	m.Status = status
	return true
}

// Member returns the slot held by participantID.
func (m *Meeting) Member(participantID int64) (*Member, bool) {
	for i := range m.Members {
		if m.Members[i].ParticipantID == participantID {
			return &m.Members[i], true
		}
	}
	return nil, false
}

// RouteFor builds the view of the meeting from participantID's side.
func (m *Meeting) RouteFor(participantID int64) (*Route, bool) {
	route := &Route{Meeting: m}
	found := false
	for _, member := range m.Members {
		if member.ParticipantID == participantID && !found {
			route.Source = member
			found = true
			continue
		}
		route.Others = append(route.Others, member)
	}
	if !found {
		return nil, false
	}
	return route, true
}

// Clone returns a copy safe to mutate.
func (m *Meeting) Clone() *Meeting {
	c := *m
	return &c
}

// One is the member that issued the operation.
func (r *Route) One() Member {
	return r.Source
}

// Another is the counterpart in a two-party meeting.
func (r *Route) Another() Member {
	return r.Others[0]
}
