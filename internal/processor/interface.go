package processor

import (
	"github.com/mauv0809/pairup/internal/lifecycle"
	"github.com/mauv0809/pairup/internal/matchmaking"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/mauv0809/pairup/internal/store"
)

// Store defines the database operations required by the processor.
type Store interface {
	store.Store
}

// Matchmaker pairs ready participants.
type Matchmaker interface {
	matchmaking.Service
}

// Lifecycle applies meeting transitions.
type Lifecycle interface {
	lifecycle.Service
}

// Notifier defines the notification operations required by the processor.
// This is an alias for the main notifier interface for decoupling.
type Notifier interface {
	notifier.Notifier
}
