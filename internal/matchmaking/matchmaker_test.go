package matchmaking_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mauv0809/pairup/internal/database"
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

func ready(t *testing.T, s store.Store, n string, mode participant.Mode) participant.SearchProjection {
	t.Helper()
	var proj participant.SearchProjection
	err := s.WithParticipant(context.Background(), key(n), n, func(tx store.Tx, p *participant.Participant) error {
		if p.State == participant.StateInactive {
			require.True(t, p.OptIn())
		}
		if mode != participant.ModeUnknown {
			require.True(t, p.SetMode(mode))
		}
		require.True(t, p.MarkReadyToParticipate())
		var ok bool
		proj, ok = p.TryGetSearchProjection()
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	return proj
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

// complete ends m and releases both members.
func complete(t *testing.T, s store.Store, m *meeting.Meeting) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateMeetingStatus(ctx, m.ID, meeting.StatusInProgress, meeting.StatusCompleted); err != nil {
			return err
		}
		for _, member := range m.Members {
			p, err := tx.GetParticipantByID(ctx, member.ParticipantID)
			if err != nil {
				return err
			}
			require.True(t, p.ExitMeeting(m.ID))
			if err := tx.SaveParticipant(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestParsePolicy(t *testing.T) {
	p, err := matchmaking.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, matchmaking.PolicyNeverRematch, p)

	p, err = matchmaking.ParsePolicy("prefer-new")
	require.NoError(t, err)
	assert.Equal(t, matchmaking.PolicyPreferNew, p)

	_, err = matchmaking.ParsePolicy("sometimes")
	assert.Error(t, err)
}

func TestFindMatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		m := metrics.NewMock()
		mm := matchmaking.New(s, m)

		a := ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)

		found, mt, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, mt)
		assert.Equal(t, meeting.StatusInProgress, mt.Status)
		assert.Equal(t, key("a"), mt.Members[0].Key)
		assert.Equal(t, key("b"), mt.Members[1].Key)

		for _, n := range []string{"a", "b"} {
			p := get(t, s, n)
			assert.Equal(t, participant.StateInMeeting, p.State)
			assert.Equal(t, mt.ID, p.CurrentMeetingID)
		}
		assert.Equal(t, 1, m.MatchesCreated())
		assert.Equal(t, 1, m.MatchSearches())
	})
}

func TestFindMatch_ModeMismatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		m := metrics.NewMock()
		mm := matchmaking.New(s, m)

		a := ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "c", participant.ModeOffline)

		found, mt, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, mt)
		assert.Equal(t, participant.StateReady, get(t, s, "a").State)
		assert.Equal(t, participant.StateReady, get(t, s, "c").State)
		assert.Equal(t, 1, m.MatchMisses())
	})
}

func TestFindMatch_UnknownModeMatchesAnyone(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		mm := matchmaking.New(s, metrics.NewMock())

		a := ready(t, s, "a", participant.ModeUnknown)
		ready(t, s, "c", participant.ModeOffline)

		found, _, err := mm.FindMatch(context.Background(), a)
		require.NoError(t, err)
		assert.True(t, found)
	})
}

func TestFindMatch_NoSelfMatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		mm := matchmaking.New(s, metrics.NewMock())

		a := ready(t, s, "a", participant.ModeOnline)

		found, mt, err := mm.FindMatch(context.Background(), a)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, mt)
	})
}

func TestFindMatch_RequesterNoLongerReady(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mm := matchmaking.New(s, metrics.NewMock())

		a := ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)
		require.NoError(t, s.WithParticipant(ctx, key("a"), "", func(tx store.Tx, p *participant.Participant) error {
			require.True(t, p.OptOut())
			return nil
		}))

		// The projection still says ready; the stored state wins.
		found, _, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, participant.StateReady, get(t, s, "b").State)
	})
}

func TestFindMatch_RequesterNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		mm := matchmaking.New(s, metrics.NewMock())

		_, _, err := mm.FindMatch(context.Background(), participant.SearchProjection{ID: 4242, Key: key("ghost")})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestFindMatch_NeverRematch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mm := matchmaking.New(s, metrics.NewMock())

		a := ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)
		found, first, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		require.True(t, found)
		complete(t, s, first)

		a = ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)

		t.Run("prior partner alone is excluded", func(t *testing.T) {
			found, _, err := mm.FindMatch(ctx, a)
			require.NoError(t, err)
			assert.False(t, found)
		})

		t.Run("new candidate is selected", func(t *testing.T) {
			ready(t, s, "c", participant.ModeOnline)
			found, second, err := mm.FindMatch(ctx, a)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, key("c"), second.Members[1].Key)
			assert.Equal(t, participant.StateReady, get(t, s, "b").State)
		})
	})
}

func TestFindMatch_PreferNew(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mm := matchmaking.New(s, metrics.NewMock(), matchmaking.WithPolicy(matchmaking.PolicyPreferNew))
		assert.Equal(t, matchmaking.PolicyPreferNew, mm.Policy())

		a := ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)
		_, first, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		complete(t, s, first)

		a = ready(t, s, "a", participant.ModeOnline)
		ready(t, s, "b", participant.ModeOnline)
		ready(t, s, "c", participant.ModeOnline)

		found, second, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, key("c"), second.Members[1].Key)
		complete(t, s, second)

		// Only the prior partner is left, and that is allowed now.
		a = ready(t, s, "a", participant.ModeOnline)
		found, third, err := mm.FindMatch(ctx, a)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, key("b"), third.Members[1].Key)
	})
}

func TestFindMatch_WithinCallerTransaction(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mm := matchmaking.New(s, metrics.NewMock())

		a := ready(t, s, "a", participant.ModeOffline)
		ready(t, s, "b", participant.ModeOffline)

		err := s.InTx(ctx, func(tx store.Tx) error {
			found, _, err := mm.FindMatchWithin(ctx, tx, a)
			require.NoError(t, err)
			require.True(t, found)
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		// Rolled back with the caller.
		assert.Equal(t, participant.StateReady, get(t, s, "a").State)
		assert.Equal(t, participant.StateReady, get(t, s, "b").State)
	})
}

func TestFindMatch_Concurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mm := matchmaking.New(s, metrics.NewMock())

		names := []string{"a", "b", "c"}
		projections := make([]participant.SearchProjection, len(names))
		for i, n := range names {
			projections[i] = ready(t, s, n, participant.ModeOnline)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			meetings = map[string]*meeting.Meeting{}
		)
		for _, proj := range projections {
			wg.Add(1)
			go func(proj participant.SearchProjection) {
				defer wg.Done()
				found, mt, err := mm.FindMatch(ctx, proj)
				assert.NoError(t, err)
				if found {
					mu.Lock()
					meetings[mt.ID] = mt
					mu.Unlock()
				}
			}(proj)
		}
		wg.Wait()

		require.Len(t, meetings, 1)
		inMeeting := 0
		for _, n := range names {
			p := get(t, s, n)
			if p.State == participant.StateInMeeting {
				inMeeting++
			} else {
				assert.Equal(t, participant.StateReady, p.State)
			}
		}
		assert.Equal(t, 2, inMeeting)
	})
}
