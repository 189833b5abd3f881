package inngest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	calls  []bool
	result int
	err    error
}

func (m *mockSweeper) Sweep(ctx context.Context, dryRun bool) (int, error) {
	m.calls = append(m.calls, dryRun)
	return m.result, m.err
}

func TestSweep(t *testing.T) {
	t.Run("passes dry run through", func(t *testing.T) {
		sweeper := &mockSweeper{result: 2}
		c := &client{sweeper: sweeper}

		res, err := c.sweep(context.Background(), map[string]any{"dry_run": true})
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Matches: 2, DryRun: true}, res)
		assert.Equal(t, []bool{true}, sweeper.calls)
	})

	t.Run("missing data means a real run", func(t *testing.T) {
		sweeper := &mockSweeper{}
		c := &client{sweeper: sweeper}

		_, err := c.sweep(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []bool{false}, sweeper.calls)
	})

	t.Run("errors are returned for retry", func(t *testing.T) {
		failure := errors.New("db locked")
		c := &client{sweeper: &mockSweeper{err: failure}}

		_, err := c.sweep(context.Background(), map[string]any{})
		assert.ErrorIs(t, err, failure)
	})
}
