package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
)

// DefaultTopics mirrors the topics seeded by the database migrations.
var DefaultTopics = []participant.Topic{
	{ID: 1, Name: "F#"},
	{ID: 2, Name: "Async"},
	{ID: 3, Name: "PostgreSQL"},
	{ID: 4, Name: "Management"},
	{ID: 5, Name: "Event Sourcing"},
}

type memoryMeeting struct {
	meeting *meeting.Meeting
	seq     int64
}

type memoryState struct {
	lastParticipantID int64
	lastMeetingSeq    int64
	participants      map[int64]*participant.Participant
	meetings          map[string]*memoryMeeting
	feedback          []meeting.Feedback
	topics            []participant.Topic
}

func newMemoryState(topics []participant.Topic) *memoryState {
	return &memoryState{
		participants: map[int64]*participant.Participant{},
		meetings:     map[string]*memoryMeeting{},
		topics:       append([]participant.Topic(nil), topics...),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		lastParticipantID: s.lastParticipantID,
		lastMeetingSeq:    s.lastMeetingSeq,
		participants:      make(map[int64]*participant.Participant, len(s.participants)),
		meetings:          make(map[string]*memoryMeeting, len(s.meetings)),
		feedback:          append([]meeting.Feedback(nil), s.feedback...),
		topics:            s.topics,
	}
	for id, p := range s.participants {
		c.participants[id] = p.Clone()
	}
	for id, m := range s.meetings {
		c.meetings[id] = &memoryMeeting{meeting: m.meeting.Clone(), seq: m.seq}
	}
	return c
}

// memoryStore keeps everything in process. A transaction works on a private copy
// of the state under a single writer lock and swaps it in on commit, so it
// honors the same contract as the SQL store.
type memoryStore struct {
	mu    sync.Mutex
	state *memoryState
	now   func() time.Time
}

// NewMemory creates an empty in-memory Store seeded with DefaultTopics.
func NewMemory() Store {
	return &memoryStore{
		state: newMemoryState(DefaultTopics),
		now:   time.Now,
	}
}

func (s *memoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	work := s.state.clone()
	if err := fn(&memoryTx{state: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.state = work
	return nil
}

func (s *memoryStore) WithParticipant(ctx context.Context, key participant.Key, displayName string, fn func(tx Tx, p *participant.Participant) error) error {
	return withParticipant(ctx, s.InTx, key, displayName, fn)
}

func (s *memoryStore) WithParticipantByContext(ctx context.Context, contextID string, fn func(tx Tx, p *participant.Participant) error) error {
	return withParticipantByContext(ctx, s.InTx, contextID, fn)
}

func (s *memoryStore) WithMeetingForParticipant(ctx context.Context, key participant.Key, fn func(tx Tx, r *meeting.Route) error) error {
	return withMeetingForParticipant(ctx, s.InTx, key, fn)
}

func (s *memoryStore) Save(ctx context.Context, p *participant.Participant) error {
	return save(ctx, s.InTx, p)
}

func (s *memoryStore) ReadyParticipants(ctx context.Context) ([]participant.SearchProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []*participant.Participant
	for _, p := range s.state.participants {
		if p.State == participant.StateReady && p.CurrentMeetingID == "" {
			ready = append(ready, p)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].UpdatedAt.Equal(ready[j].UpdatedAt) {
			return ready[i].UpdatedAt.Before(ready[j].UpdatedAt)
		}
		return ready[i].ID < ready[j].ID
	})
	projections := make([]participant.SearchProjection, 0, len(ready))
	for _, p := range ready {
		proj, _ := p.TryGetSearchProjection()
		projections = append(projections, proj)
	}
	return projections, nil
}

func (s *memoryStore) Topics(ctx context.Context) ([]participant.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]participant.Topic{}, s.state.topics...), nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newMemoryState(s.state.topics)
	log.Info("Store cleared")
	return nil
}

type memoryTx struct {
	state *memoryState
	now   func() time.Time
}

func (t *memoryTx) GetParticipant(ctx context.Context, key participant.Key) (*participant.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range t.state.participants {
		if p.Key == key {
			return p.Clone(), nil
		}
	}
	return nil, notFound("participant", key.String())
}

func (t *memoryTx) GetParticipantByID(ctx context.Context, id int64) (*participant.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := t.state.participants[id]
	if !ok {
		return nil, notFound("participant", id)
	}
	return p.Clone(), nil
}

func (t *memoryTx) GetParticipantByContext(ctx context.Context, contextID string) (*participant.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *participant.Participant
	for _, p := range t.state.participants {
		if p.Key.ContextID == contextID && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, notFound("participant", "in context "+contextID)
	}
	return found.Clone(), nil
}

func (t *memoryTx) CreateParticipant(ctx context.Context, key participant.Key, displayName string) (*participant.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := t.GetParticipant(ctx, key); err == nil {
		return nil, fmt.Errorf("failed to create participant: %s already exists", key)
	}
	t.state.lastParticipantID++
	p := participant.New(key, displayName, t.now().UTC())
	p.ID = t.state.lastParticipantID
	p.Version = 1
	t.state.participants[p.ID] = p.Clone()
	return p, nil
}

func (t *memoryTx) SaveParticipant(ctx context.Context, p *participant.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := t.state.participants[p.ID]
	if !ok {
		return notFound("participant", p.ID)
	}
	if stored.Version != p.Version {
		return fmt.Errorf("failed to save participant %d at version %d: %w", p.ID, p.Version, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = t.now().UTC()
	t.state.participants[p.ID] = p.Clone()
	return nil
}

func (t *memoryTx) ResolveTopics(ctx context.Context, ids []int64) ([]participant.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byID := make(map[int64]participant.Topic, len(t.state.topics))
	for _, topic := range t.state.topics {
		byID[topic.ID] = topic
	}
	seen := map[int64]bool{}
	topics := []participant.Topic{}
	for _, id := range ids {
		topic, ok := byID[id]
		if !ok {
			return nil, notFound("topic", id)
		}
		if !seen[id] {
			seen[id] = true
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (t *memoryTx) FindCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, p := range t.state.participants {
		if p.ID == q.RequesterID || p.State != participant.StateReady || p.CurrentMeetingID != "" {
			continue
		}
		if (q.Mode == participant.ModeOnline || q.Mode == participant.ModeOffline) && p.Mode != q.Mode {
			continue
		}
		if t.hasInProgressMeeting(p.ID) {
			continue
		}
		c := p.Clone()
		c.Topics = []participant.Topic{}
		candidates = append(candidates, Candidate{Participant: c, PriorMeetings: t.priorMeetings(q.RequesterID, p.ID)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PriorMeetings != candidates[j].PriorMeetings {
			return candidates[i].PriorMeetings < candidates[j].PriorMeetings
		}
		return candidates[i].Participant.ID < candidates[j].Participant.ID
	})
	return candidates, nil
}

func (t *memoryTx) priorMeetings(a, b int64) int {
	n := 0
	for _, m := range t.state.meetings {
		_, hasA := m.meeting.Member(a)
		_, hasB := m.meeting.Member(b)
		if hasA && hasB {
			n++
		}
	}
	return n
}

func (t *memoryTx) hasInProgressMeeting(participantID int64) bool {
	for _, m := range t.state.meetings {
		if _, ok := m.meeting.Member(participantID); ok && m.meeting.Status == meeting.StatusInProgress {
			return true
		}
	}
	return false
}

func (t *memoryTx) HasInProgressMeeting(ctx context.Context, participantID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return t.hasInProgressMeeting(participantID), nil
}

func (t *memoryTx) CreateMeeting(ctx context.Context, m *meeting.Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.state.meetings[m.ID]; exists {
		return fmt.Errorf("failed to create meeting: %s already exists", m.ID)
	}
	for _, member := range m.Members {
		if _, ok := t.state.participants[member.ParticipantID]; !ok {
			return notFound("participant", member.ParticipantID)
		}
	}
	t.state.lastMeetingSeq++
	t.state.meetings[m.ID] = &memoryMeeting{meeting: m.Clone(), seq: t.state.lastMeetingSeq}
	return nil
}

// view returns a copy of the stored meeting with member identities refreshed from participants.
func (t *memoryTx) view(m *meeting.Meeting) *meeting.Meeting {
	c := m.Clone()
	for i := range c.Members {
		if p, ok := t.state.participants[c.Members[i].ParticipantID]; ok {
			c.Members[i].Key = p.Key
			c.Members[i].DisplayName = p.DisplayName
		}
	}
	return c
}

func (t *memoryTx) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := t.state.meetings[id]
	if !ok {
		return nil, notFound("meeting", id)
	}
	return t.view(m.meeting), nil
}

func (t *memoryTx) LatestMeetingFor(ctx context.Context, participantID int64) (*meeting.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var latest *memoryMeeting
	for _, m := range t.state.meetings {
		if _, ok := m.meeting.Member(participantID); !ok {
			continue
		}
		if latest == nil || m.meeting.CreatedAt.After(latest.meeting.CreatedAt) ||
			(m.meeting.CreatedAt.Equal(latest.meeting.CreatedAt) && m.seq > latest.seq) {
			latest = m
		}
	}
	if latest == nil {
		return nil, notFound("meeting", fmt.Sprintf("for participant %d", participantID))
	}
	return t.view(latest.meeting), nil
}

func (t *memoryTx) UpdateMeetingStatus(ctx context.Context, id string, from, to meeting.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, ok := t.state.meetings[id]
	if !ok {
		return notFound("meeting", id)
	}
	if m.meeting.Status != from {
		return fmt.Errorf("failed to move meeting %s out of %s: %w", id, from, ErrConflict)
	}
	m.meeting.Status = to
	m.meeting.UpdatedAt = t.now().UTC()
	return nil
}

func (t *memoryTx) SetFeedbackAvailable(ctx context.Context, meetingID string, participantID int64, available bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, ok := t.state.meetings[meetingID]
	if !ok {
		return notFound("meeting member", fmt.Sprintf("%s/%d", meetingID, participantID))
	}
	member, ok := m.meeting.Member(participantID)
	if !ok {
		return notFound("meeting member", fmt.Sprintf("%s/%d", meetingID, participantID))
	}
	member.FeedbackAvailable = available
	return nil
}

func (t *memoryTx) ClearFeedbackFlags(ctx context.Context, participantID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range t.state.meetings {
		if member, ok := m.meeting.Member(participantID); ok {
			member.FeedbackAvailable = false
		}
	}
	return nil
}

func (t *memoryTx) InsertFeedback(ctx context.Context, f meeting.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.meetings[f.MeetingID]; !ok {
		return notFound("meeting", f.MeetingID)
	}
	t.state.feedback = append(t.state.feedback, f)
	return nil
}
