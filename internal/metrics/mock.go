package metrics

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	matchesCreated     int
	matchMisses        int
	conflictRetries    int
	meetingTransitions map[string]int
	feedbackSubmitted  int
	matchDurations     []float64
	notifSent          map[string]int
	notifFailed        map[string]int
	startupTime        float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		meetingTransitions: make(map[string]int),
		matchDurations:     make([]float64, 0),
		notifSent:          make(map[string]int),
		notifFailed:        make(map[string]int),
	}
}

func (m *Mock) IncMatchesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated++
}

func (m *Mock) IncMatchMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchMisses++
}

func (m *Mock) IncConflictRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflictRetries++
}

func (m *Mock) IncMeetingTransition(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetingTransitions[status]++
}

func (m *Mock) IncFeedbackSubmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbackSubmitted++
}

func (m *Mock) ObserveMatchDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchDurations = append(m.matchDurations, duration)
}

func (m *Mock) IncNotifSent(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent[channel]++
}

func (m *Mock) IncNotifFailed(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed[channel]++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesCreated returns the number of times IncMatchesCreated was called.
func (m *Mock) MatchesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated
}

// MatchMisses returns the number of times IncMatchMisses was called.
func (m *Mock) MatchMisses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchMisses
}

func (m *Mock) ConflictRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflictRetries
}

// MeetingTransitions returns how often meetings reached the given status.
func (m *Mock) MeetingTransitions(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meetingTransitions[status]
}

func (m *Mock) FeedbackSubmitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedbackSubmitted
}

// MatchSearches returns the number of observed match durations.
func (m *Mock) MatchSearches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matchDurations)
}

// NotifSent returns the number of notifications sent on channel.
func (m *Mock) NotifSent(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent[channel]
}

// NotifFailed returns the number of failed notifications on channel.
func (m *Mock) NotifFailed(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed[channel]
}

func (m *Mock) StartupTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startupTime
}

// MockStore is an in-memory MetricsStore for tests.
type MockStore struct {
	mu     sync.Mutex
	values map[string]int
}

var _ MetricsStore = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{values: make(map[string]int)}
}

func (s *MockStore) Increment(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
}

func (s *MockStore) GetAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// Get returns the current value of key.
func (s *MockStore) Get(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}
