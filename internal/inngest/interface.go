package inngest

import (
	"context"
	"net/http"
)

type InngestClient interface {
	Serve() http.Handler
	SendEvent(ctx context.Context, name string, data map[string]any) error
}

// Sweeper runs one matchmaking pass over the waiting pool.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (int, error)
}
