package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mauv0809/pairup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	t.Run("succeeds after a conflict", func(t *testing.T) {
		calls := 0
		err := store.Retry(context.Background(), 3, func(attempt int) error {
			calls++
			if attempt == 1 {
				return fmt.Errorf("failed to save participant: %w", store.ErrConflict)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("surfaces conflict when exhausted", func(t *testing.T) {
		calls := 0
		err := store.Retry(context.Background(), 2, func(int) error {
			calls++
			return store.ErrConflict
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		boom := errors.New("connection reset")
		calls := 0
		err := store.Retry(context.Background(), 3, func(int) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := store.Retry(ctx, 3, func(int) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}

func TestNotFoundError(t *testing.T) {
	var err error = &store.NotFoundError{Entity: "meeting", ID: "m1"}
	wrapped := fmt.Errorf("failed to load meeting: %w", err)
	assert.ErrorIs(t, wrapped, store.ErrNotFound)
	assert.EqualError(t, err, "meeting m1 not found")

	var nf *store.NotFoundError
	require.ErrorAs(t, wrapped, &nf)
	assert.Equal(t, "meeting", nf.Entity)
}

func TestRetry_StopsWhenContextIsDoneBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := store.Retry(ctx, 5, func(int) error {
		calls++
		cancel()
		return store.ErrConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
