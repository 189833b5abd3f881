package notifier

import (
	"context"
	"sync"

	"github.com/mauv0809/pairup/internal/events"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies
	NotifyMatchFunc         func(ev events.MatchFound, dryRun bool) error
	NotifyMeetingStatusFunc func(ev events.MeetingStatusChanged, dryRun bool) error
	RelayMessageFunc        func(ev events.MessageRelayed, dryRun bool) error

	// Call records
	NotifyMatchCalls         []events.MatchFound
	NotifyMeetingStatusCalls []events.MeetingStatusChanged
	RelayMessageCalls        []events.MessageRelayed
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyMatchCalls = nil
	m.NotifyMeetingStatusCalls = nil
	m.RelayMessageCalls = nil
}

func (m *Mock) NotifyMatch(ctx context.Context, ev events.MatchFound, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyMatchCalls = append(m.NotifyMatchCalls, ev)
	if m.NotifyMatchFunc != nil {
		return m.NotifyMatchFunc(ev, dryRun)
	}
	return nil
}

func (m *Mock) NotifyMeetingStatus(ctx context.Context, ev events.MeetingStatusChanged, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyMeetingStatusCalls = append(m.NotifyMeetingStatusCalls, ev)
	if m.NotifyMeetingStatusFunc != nil {
		return m.NotifyMeetingStatusFunc(ev, dryRun)
	}
	return nil
}

func (m *Mock) RelayMessage(ctx context.Context, ev events.MessageRelayed, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RelayMessageCalls = append(m.RelayMessageCalls, ev)
	if m.RelayMessageFunc != nil {
		return m.RelayMessageFunc(ev, dryRun)
	}
	return nil
}

// Calls returns the number of calls per method.
func (m *Mock) Calls() (match, status, relay int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.NotifyMatchCalls), len(m.NotifyMeetingStatusCalls), len(m.RelayMessageCalls)
}
