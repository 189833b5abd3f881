package inngest

import (
	"github.com/inngest/inngestgo"
)

// SweepEvent triggers a matchmaking sweep.
const SweepEvent = "matchmaking/sweep"

type client struct {
	inngestClient inngestgo.Client
	sweeper       Sweeper
}

// SweepResult is what the sweep function returns to Inngest.
type SweepResult struct {
	Matches int  `json:"matches"`
	DryRun  bool `json:"dry_run"`
}
