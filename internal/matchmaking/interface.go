package matchmaking

import (
	"context"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
)

// Store defines the storage operations required by the matchmaker.
type Store interface {
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
}

// Service pairs ready participants.
type Service interface {
	// FindMatch tries to pair the requester with an eligible candidate. It reports
	// false with a nil meeting when nobody is eligible; the requester stays ready.
	FindMatch(ctx context.Context, requester participant.SearchProjection) (bool, *meeting.Meeting, error)
	// FindMatchWithin is FindMatch inside a transaction owned by the caller.
	FindMatchWithin(ctx context.Context, tx store.Tx, requester participant.SearchProjection) (bool, *meeting.Meeting, error)
}
