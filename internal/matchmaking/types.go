package matchmaking

import (
	"fmt"
	"time"

	"github.com/mauv0809/pairup/internal/metrics"
)

// Policy decides what happens with candidates the requester has already met.
type Policy string

const (
	// PolicyNeverRematch excludes anyone ever paired with the requester.
	PolicyNeverRematch Policy = "never"
	// PolicyPreferNew ranks previous partners last but still allows them.
	PolicyPreferNew Policy = "prefer-new"
)

// ParsePolicy validates a configured policy name. Empty means PolicyNeverRematch.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyNeverRematch:
		return PolicyNeverRematch, nil
	case PolicyPreferNew:
		return PolicyPreferNew, nil
	}
	return "", fmt.Errorf("unknown rematch policy %q", s)
}

// Matchmaker implements Service on top of a transactional store.
type Matchmaker struct {
	store       Store
	metrics     metrics.Metrics
	policy      Policy
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

// Option configures a Matchmaker.
type Option func(*Matchmaker)

func WithPolicy(p Policy) Option {
	return func(m *Matchmaker) { m.policy = p }
}

// WithMaxAttempts bounds how often a conflicting FindMatch is retried.
func WithMaxAttempts(n int) Option {
	return func(m *Matchmaker) { m.maxAttempts = n }
}

func WithClock(now func() time.Time) Option {
	return func(m *Matchmaker) { m.now = now }
}
