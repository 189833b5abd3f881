package inngest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
)

// NewClient builds the Inngest SDK client for appID.
func NewClient(appID, signingKey, eventKey string, dev bool) (inngestgo.Client, error) {
	opts := inngestgo.ClientOpts{
		AppID: appID,
		Dev:   &dev,
	}
	if signingKey != "" {
		opts.SigningKey = &signingKey
	}
	if eventKey != "" {
		opts.EventKey = &eventKey
	}
	c, err := inngestgo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create inngest client: %w", err)
	}
	return c, nil
}

// New registers the durable functions on inngestClient.
func New(inngestClient inngestgo.Client, sweeper Sweeper) (InngestClient, error) {
	c := &client{
		inngestClient: inngestClient,
		sweeper:       sweeper,
	}
	if _, err := c.createSweepFunction(); err != nil {
		return nil, err
	}
	return c, nil
}

func (i *client) createSweepFunction() (inngestgo.ServableFunction, error) {
	config := inngestgo.FunctionOpts{
		ID:   "matchmaking-sweep",
		Name: "Pair waiting participants",
	}
	f, err := inngestgo.CreateFunction(
		i.inngestClient,
		config,
		inngestgo.EventTrigger(SweepEvent, nil),
		func(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
			// Wrapped in a step so Inngest retries the sweep on failure.
			return step.Run(ctx, "sweep", func(ctx context.Context) (SweepResult, error) {
				return i.sweep(ctx, input.Event.Data)
			})
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep function: %w", err)
	}
	return f, nil
}

func (i *client) sweep(ctx context.Context, data map[string]any) (SweepResult, error) {
	dryRun, _ := data["dry_run"].(bool)
	matches, err := i.sweeper.Sweep(ctx, dryRun)
	if err != nil {
		log.Error("Sweep failed", "error", err)
		return SweepResult{}, err
	}
	return SweepResult{Matches: matches, DryRun: dryRun}, nil
}

func (i *client) Serve() http.Handler {
	return i.inngestClient.Serve()
}

func (i *client) SendEvent(ctx context.Context, name string, data map[string]any) error {
	id, err := i.inngestClient.Send(ctx, inngestgo.Event{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("failed to send event %s: %w", name, err)
	}
	log.Info("Sent inngest event", "name", name, "id", id)
	return nil
}
