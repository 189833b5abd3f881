package lifecycle_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mauv0809/pairup/internal/database"
	"github.com/mauv0809/pairup/internal/lifecycle"
	"github.com/mauv0809/pairup/internal/matchmaking"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) store.Store {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	return store.New(db)
}

func forEachStore(t *testing.T, test func(t *testing.T, s store.Store)) {
	t.Run("sql", func(t *testing.T) {
		test(t, setupTestDB(t))
	})
	t.Run("memory", func(t *testing.T) {
		test(t, store.NewMemory())
	})
}

func key(n string) participant.Key {
	return participant.Key{ContextID: "chat-" + n, PersonID: "user-" + n}
}

// matched brings a and b to ready and pairs them with a as the requester.
func matched(t *testing.T, s store.Store) *meeting.Meeting {
	t.Helper()
	ctx := context.Background()
	var requester participant.SearchProjection
	for _, n := range []string{"a", "b"} {
		require.NoError(t, s.WithParticipant(ctx, key(n), n, func(tx store.Tx, p *participant.Participant) error {
			if p.State == participant.StateInactive {
				require.True(t, p.OptIn())
			}
			require.True(t, p.SetOnline())
			require.True(t, p.MarkReadyToParticipate())
			if n == "a" {
				requester, _ = p.TryGetSearchProjection()
			}
			return nil
		}))
	}
	found, m, err := matchmaking.New(s, metrics.NewMock(), matchmaking.WithPolicy(matchmaking.PolicyPreferNew)).FindMatch(ctx, requester)
	require.NoError(t, err)
	require.True(t, found)
	return m
}

func get(t *testing.T, s store.Store, n string) *participant.Participant {
	t.Helper()
	var out *participant.Participant
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.GetParticipant(context.Background(), key(n))
		return err
	}))
	return out
}

func getMeeting(t *testing.T, s store.Store, id string) *meeting.Meeting {
	t.Helper()
	var out *meeting.Meeting
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.GetMeeting(context.Background(), id)
		return err
	}))
	return out
}

func TestTryComplete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		m := metrics.NewMock()
		c := lifecycle.New(s, m)
		mt := matched(t, s)

		changed, done, err := c.TryComplete(ctx, mt.ID)
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, meeting.StatusCompleted, done.Status)

		stored := getMeeting(t, s, mt.ID)
		assert.Equal(t, meeting.StatusCompleted, stored.Status)
		for i, n := range []string{"a", "b"} {
			p := get(t, s, n)
			assert.Equal(t, participant.StateActive, p.State)
			assert.Empty(t, p.CurrentMeetingID)
			assert.True(t, stored.Members[i].FeedbackAvailable)
		}
		assert.Equal(t, 1, m.MeetingTransitions("completed"))

		t.Run("second call is a no-op", func(t *testing.T) {
			changed, again, err := c.TryComplete(ctx, mt.ID)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, meeting.StatusCompleted, again.Status)
			assert.Equal(t, 1, m.MeetingTransitions("completed"))
		})

		t.Run("cancel after complete is refused", func(t *testing.T) {
			changed, _, err := c.TryCancel(ctx, mt.ID)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, meeting.StatusCompleted, getMeeting(t, s, mt.ID).Status)
			assert.Equal(t, 0, m.MeetingTransitions("cancelled"))
		})
	})
}

func TestTryCancel(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		c := lifecycle.New(s, metrics.NewMock())
		mt := matched(t, s)

		changed, _, err := c.TryCancel(ctx, mt.ID)
		require.NoError(t, err)
		require.True(t, changed)

		stored := getMeeting(t, s, mt.ID)
		assert.Equal(t, meeting.StatusCancelled, stored.Status)
		assert.True(t, stored.Members[0].FeedbackAvailable)
		assert.True(t, stored.Members[1].FeedbackAvailable)
		assert.Equal(t, participant.StateActive, get(t, s, "a").State)
		assert.Equal(t, participant.StateActive, get(t, s, "b").State)
	})
}

func TestTryFinish_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		_, _, err := lifecycle.New(s, metrics.NewMock()).TryCancel(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTryFinish_Concurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		c := lifecycle.New(s, metrics.NewMock())
		mt := matched(t, s)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var (
					changed bool
					err     error
				)
				if i%2 == 0 {
					changed, _, err = c.TryCancel(ctx, mt.ID)
				} else {
					changed, _, err = c.TryComplete(ctx, mt.ID)
				}
				assert.NoError(t, err)
				if changed {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.True(t, getMeeting(t, s, mt.ID).IsTerminal())
	})
}

func TestTrySubmitFeedback(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		m := metrics.NewMock()
		c := lifecycle.New(s, m)
		mt := matched(t, s)

		t.Run("refused while in progress", func(t *testing.T) {
			ok, err := c.TrySubmitFeedback(ctx, mt.ID, key("a"), "too early")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		_, _, err := c.TryComplete(ctx, mt.ID)
		require.NoError(t, err)

		t.Run("accepted once", func(t *testing.T) {
			ok, err := c.TrySubmitFeedback(ctx, mt.ID, key("a"), "great talk")
			require.NoError(t, err)
			assert.True(t, ok)

			stored := getMeeting(t, s, mt.ID)
			assert.False(t, stored.Members[0].FeedbackAvailable)
			assert.True(t, stored.Members[1].FeedbackAvailable)

			ok, err = c.TrySubmitFeedback(ctx, mt.ID, key("a"), "great talk")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 1, m.FeedbackSubmitted())
		})

		t.Run("other member keeps its own flag", func(t *testing.T) {
			ok, err := c.TrySubmitFeedback(ctx, mt.ID, key("b"), "nice")
			require.NoError(t, err)
			assert.True(t, ok)
		})

		t.Run("non-member is refused", func(t *testing.T) {
			require.NoError(t, s.WithParticipant(ctx, key("z"), "z", func(tx store.Tx, p *participant.Participant) error {
				return nil
			}))
			ok, err := c.TrySubmitFeedback(ctx, mt.ID, key("z"), "hi")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("unknown participant", func(t *testing.T) {
			_, err := c.TrySubmitFeedback(ctx, mt.ID, key("nobody"), "hi")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	})
}

func TestFinishWithin_HeldParticipant(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		c := lifecycle.New(s, metrics.NewMock())
		mt := matched(t, s)

		// Opting out mid-meeting: the held participant is saved by the caller afterwards.
		err := s.WithParticipant(ctx, key("a"), "", func(tx store.Tx, p *participant.Participant) error {
			changed, _, err := c.FinishWithin(ctx, tx, p.CurrentMeetingID, meeting.StatusCancelled, p)
			require.NoError(t, err)
			require.True(t, changed)
			assert.Equal(t, participant.StateActive, p.State)
			require.True(t, p.OptOut())
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, participant.StateInactive, get(t, s, "a").State)
		assert.Equal(t, participant.StateActive, get(t, s, "b").State)
		assert.Equal(t, meeting.StatusCancelled, getMeeting(t, s, mt.ID).Status)
	})
}
