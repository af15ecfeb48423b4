package room

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
	"github.com/DoyleJ11/op-quiz-backend/internal/opening"
	"github.com/DoyleJ11/op-quiz-backend/internal/player"
	"github.com/DoyleJ11/op-quiz-backend/internal/round"
	"github.com/DoyleJ11/op-quiz-backend/internal/storage"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	room   *Room
	clock  *fakeClock
	source *opening.Static
	store  *storage.Memory
}

var titles = map[string]string{}

func init() {
	all, _ := opening.NewStatic().All(context.Background())
	for _, o := range all {
		titles[o.ID] = o.OpeningTitle
	}
}

func newFixture(t *testing.T, opts ...player.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:  &fakeClock{t: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)},
		source: opening.NewStatic(),
		store:  storage.NewMemory(),
	}
	f.room = New(context.Background(), Options{
		Directory: player.NewDirectory(f.store, opts...),
		Openings:  f.source,
		Rand:      rand.New(rand.NewPCG(11, 13)),
		Now:       f.clock.Now,
		Logger:    zap.NewNop(),
	})
	t.Cleanup(f.room.Close)
	return f
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (f *fixture) join(t *testing.T, name string) string {
	t.Helper()
	res, err := f.room.Join(testCtx(t), name, "")
	require.NoError(t, err)
	return res.PlayerID
}

// ownerName reads the next-round owner from the anonymous projection.
func (f *fixture) ownerName(t *testing.T) string {
	t.Helper()
	st, err := f.room.State(testCtx(t), "")
	require.NoError(t, err)
	if st.NextRoundOwnerName == nil {
		return ""
	}
	return *st.NextRoundOwnerName
}

func dur(sec int) *int { return &sec }

func entryFor(board []types.ScoreEntry, id string) types.ScoreEntry {
	for _, e := range board {
		if e.PlayerID == id {
			return e
		}
	}
	return types.ScoreEntry{}
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	res, err := f.room.Join(ctx, "  Ana  ", "")
	require.NoError(t, err)
	assert.Equal(t, ID, res.RoomID)
	assert.Equal(t, "Ana", res.Name)
	assert.NotEmpty(t, res.PlayerID)
	assert.Equal(t, "Ana", f.ownerName(t), "first joiner owns the next round")

	seen := map[string]bool{res.PlayerID: true}
	for i := range 10 {
		id := f.join(t, fmt.Sprintf("p%d", i))
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, "Ana", f.ownerName(t), "later joiners do not take over")

	st, err := f.room.State(ctx, res.PlayerID)
	require.NoError(t, err)
	assert.Len(t, st.Scoreboard, 11)
	for _, e := range st.Scoreboard {
		assert.Zero(t, e.Score)
		assert.Zero(t, e.Correct)
		assert.Zero(t, e.Attempted)
	}

	_, err = f.room.Join(ctx, "   ", "")
	assert.ErrorIs(t, err, player.ErrNameRequired)
}

func TestJoinPassword(t *testing.T) {
	hash, err := player.HashPassword("hunter2")
	require.NoError(t, err)
	f := newFixture(t, player.WithPasswordHash(hash))
	ctx := testCtx(t)

	_, err = f.room.Join(ctx, "Ana", "wrong")
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))

	_, err = f.room.Join(ctx, " ", "wrong")
	assert.ErrorIs(t, err, player.ErrNameRequired, "name is checked before password")

	_, err = f.room.Join(ctx, "Ana", " hunter2 ")
	assert.NoError(t, err)
}

func TestStateProjection(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	anon, err := f.room.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ID, anon.RoomID)
	assert.Nil(t, anon.Round)
	assert.True(t, anon.RoundResolved)
	assert.False(t, anon.CanStartNextRound)
	assert.Nil(t, anon.NextRoundOwnerName)

	_, err = f.room.State(ctx, "ghost")
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	a := f.join(t, "A")
	b := f.join(t, "B")

	st, err := f.room.State(ctx, a)
	require.NoError(t, err)
	assert.True(t, st.CanStartNextRound)
	require.NotNil(t, st.NextRoundOwnerName)
	assert.Equal(t, "A", *st.NextRoundOwnerName)

	st, err = f.room.State(ctx, b)
	require.NoError(t, err)
	assert.False(t, st.CanStartNextRound)

	res, err := f.room.NextRound(ctx, a, dur(20))
	require.NoError(t, err)

	st, err = f.room.State(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, st.RoundNumber)
	require.NotNil(t, st.Round)
	assert.Equal(t, res.Round, st.Round.PublicRound)
	assert.Equal(t, 20, st.Round.RoundDurationSeconds)
	assert.Equal(t, f.clock.Now().Add(20*time.Second).UnixMilli(), st.Round.RoundEndsAt)
	assert.False(t, st.RoundResolved)
	assert.False(t, st.CanStartNextRound, "owner waits for the round to resolve")
	assert.Nil(t, st.RoundWinnerName)
}

func TestNextRoundRules(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")

	_, err := f.room.NextRound(ctx, "ghost", nil)
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	_, err = f.room.NextRound(ctx, b, nil)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = f.room.NextRound(ctx, a, dur(7))
	assert.ErrorIs(t, err, round.ErrInvalidDuration)

	res, err := f.room.NextRound(ctx, a, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RoundNumber)
	assert.Len(t, res.Round.Options, 5)
	assert.Contains(t, titles, res.Round.OpeningID)

	st, err := f.room.State(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, round.DefaultDurationSec, st.Round.RoundDurationSeconds)

	_, err = f.room.NextRound(ctx, a, nil)
	assert.ErrorIs(t, err, round.ErrRoundActive)

	f.clock.Advance(10 * time.Second)
	res, err = f.room.NextRound(ctx, a, dur(5))
	require.NoError(t, err)
	assert.Equal(t, 2, res.RoundNumber)
}

func TestNextRoundWithoutOpenings(t *testing.T) {
	f := newFixture(t)
	f.room.openings = &opening.Static{}
	a := f.join(t, "A")

	_, err := f.room.NextRound(testCtx(t), a, nil)
	assert.ErrorIs(t, err, opening.ErrNoOpenings)

	st, err := f.room.State(testCtx(t), a)
	require.NoError(t, err)
	assert.Nil(t, st.Round)
	assert.Zero(t, st.RoundNumber)
}

func TestWinnerTakesNextRound(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")
	c := f.join(t, "C")

	res, err := f.room.NextRound(ctx, a, dur(5))
	require.NoError(t, err)
	correct := titles[res.Round.OpeningID]
	require.Contains(t, res.Round.Options, types.Option{ID: res.Round.OpeningID, Title: correct})

	late := f.join(t, "Late")
	_, err = f.room.Answer(ctx, late, correct)
	assert.ErrorIs(t, err, round.ErrLateJoiner)

	f.clock.Advance(time.Second)
	ans, err := f.room.Answer(ctx, b, "  "+correct+" ")
	require.NoError(t, err)
	assert.True(t, ans.Correct)
	assert.Equal(t, correct, ans.CorrectOpeningTitle)
	assert.Equal(t, res.Round.OpeningID, ans.OpeningID)
	assert.Equal(t, 1, entryFor(ans.Scoreboard, b).Score)
	assert.Equal(t, "B", f.ownerName(t))

	_, err = f.room.Answer(ctx, a, correct)
	assert.ErrorIs(t, err, round.ErrAlreadyResolved)

	for _, id := range []string{a, b, c} {
		st, err := f.room.State(ctx, id)
		require.NoError(t, err)
		assert.True(t, st.RoundResolved)
		require.NotNil(t, st.RoundWinnerName)
		assert.Equal(t, "B", *st.RoundWinnerName)
		assert.Equal(t, id == b, st.CanStartNextRound)
		assert.Equal(t, id == b, st.HasAnswered)
	}

	_, err = f.room.NextRound(ctx, a, nil)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = f.room.NextRound(ctx, b, nil)
	assert.NoError(t, err)

	all, err := f.source.All(ctx)
	require.NoError(t, err)
	for _, o := range all {
		if o.ID == res.Round.OpeningID {
			assert.True(t, o.Listened)
		}
	}
}

func TestAnswerRejections(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")

	_, err := f.room.Answer(ctx, a, "Blue Bird")
	assert.ErrorIs(t, err, round.ErrNoRound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = f.room.Answer(ctx, "", "x")
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	_, err = f.room.NextRound(ctx, a, dur(10))
	require.NoError(t, err)

	_, err = f.room.Answer(ctx, a, "   ")
	assert.ErrorIs(t, err, round.ErrBlankAnswer)

	ans, err := f.room.Answer(ctx, a, "definitely wrong")
	require.NoError(t, err)
	assert.False(t, ans.Correct)
	assert.NotEmpty(t, ans.CorrectOpeningTitle)

	_, err = f.room.Answer(ctx, a, ans.CorrectOpeningTitle)
	assert.ErrorIs(t, err, round.ErrAlreadyAnswered)

	board, err := f.store.ReadAll(ctx)
	require.NoError(t, err)
	for _, p := range board {
		if p.ID == a {
			assert.Equal(t, 1, p.Attempted, "a rejected retry is not counted")
			assert.Zero(t, p.Score)
		}
	}

	f.clock.Advance(10 * time.Second)
	_, err = f.room.Answer(ctx, b, ans.CorrectOpeningTitle)
	assert.ErrorIs(t, err, round.ErrExpired)
}

func TestExpiryKeepsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	f.join(t, "B")

	_, err := f.room.NextRound(ctx, a, dur(10))
	require.NoError(t, err)

	f.clock.Advance(9999 * time.Millisecond)
	st, err := f.room.State(ctx, a)
	require.NoError(t, err)
	assert.False(t, st.RoundResolved)

	f.clock.Advance(time.Millisecond)
	st, err = f.room.State(ctx, a)
	require.NoError(t, err)
	assert.True(t, st.RoundResolved)
	assert.Nil(t, st.RoundWinnerName)
	assert.True(t, st.CanStartNextRound)
	assert.Equal(t, "A", f.ownerName(t))
}

func TestAllWrongResolvesWithoutWinner(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")

	_, err := f.room.NextRound(ctx, a, nil)
	require.NoError(t, err)
	_, err = f.room.Answer(ctx, a, "nope")
	require.NoError(t, err)

	st, _ := f.room.State(ctx, a)
	assert.False(t, st.RoundResolved)

	_, err = f.room.Answer(ctx, b, "also nope")
	require.NoError(t, err)

	st, _ = f.room.State(ctx, a)
	assert.True(t, st.RoundResolved)
	assert.Nil(t, st.RoundWinnerName)
	assert.Equal(t, "A", f.ownerName(t))
}

func TestLeave(t *testing.T) {
	t.Run("last pending participant resolves the round", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)
		a := f.join(t, "A")
		b := f.join(t, "B")
		c := f.join(t, "C")

		_, err := f.room.NextRound(ctx, a, dur(20))
		require.NoError(t, err)
		_, err = f.room.Answer(ctx, a, "nope")
		require.NoError(t, err)
		_, err = f.room.Answer(ctx, b, "nope")
		require.NoError(t, err)

		st, _ := f.room.State(ctx, a)
		require.False(t, st.RoundResolved)

		require.NoError(t, f.room.Leave(ctx, c))
		st, err = f.room.State(ctx, a)
		require.NoError(t, err)
		assert.True(t, st.RoundResolved)
		assert.Len(t, st.Scoreboard, 2)

		_, err = f.room.State(ctx, c)
		assert.ErrorIs(t, err, player.ErrPlayerNotFound)
	})

	t.Run("owner departure hands the turn on", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)
		a := f.join(t, "A")
		b := f.join(t, "B")

		require.NoError(t, f.room.Leave(ctx, a))
		assert.Equal(t, "B", f.ownerName(t))

		require.NoError(t, f.room.Leave(ctx, b))
		assert.Empty(t, f.ownerName(t))
	})

	t.Run("winner departure clears the winner", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)
		a := f.join(t, "A")
		b := f.join(t, "B")

		res, err := f.room.NextRound(ctx, a, nil)
		require.NoError(t, err)
		_, err = f.room.Answer(ctx, b, titles[res.Round.OpeningID])
		require.NoError(t, err)

		require.NoError(t, f.room.Leave(ctx, b))
		st, err := f.room.State(ctx, a)
		require.NoError(t, err)
		assert.Nil(t, st.RoundWinnerName)
		assert.Equal(t, "A", f.ownerName(t))
	})

	t.Run("unknown id is fine, empty id is not", func(t *testing.T) {
		f := newFixture(t)
		ctx := testCtx(t)
		assert.NoError(t, f.room.Leave(ctx, "ghost"))
		assert.ErrorIs(t, f.room.Leave(ctx, ""), player.ErrPlayerNotFound)
	})
}

func TestResetScores(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")

	res, err := f.room.NextRound(ctx, a, nil)
	require.NoError(t, err)
	_, err = f.room.Answer(ctx, b, titles[res.Round.OpeningID])
	require.NoError(t, err)

	_, err = f.room.ResetScores(ctx, "ghost")
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	board, err := f.room.ResetScores(ctx, a)
	require.NoError(t, err)
	require.Len(t, board, 2)
	for _, e := range board {
		assert.Zero(t, e.Score)
		assert.Zero(t, e.Correct)
		assert.Zero(t, e.Attempted)
	}

	st, err := f.room.State(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, entryFor(st.Scoreboard, b).Score)
}

func TestWipe(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	a := f.join(t, "A")
	b := f.join(t, "B")

	res, err := f.room.NextRound(ctx, a, dur(20))
	require.NoError(t, err)
	_, err = f.room.Answer(ctx, b, titles[res.Round.OpeningID])
	require.NoError(t, err)

	require.NoError(t, f.room.Wipe(ctx))

	st, err := f.room.State(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, st.Scoreboard)
	assert.True(t, st.RoundResolved)
	assert.Nil(t, st.RoundWinnerName)
	assert.Nil(t, st.NextRoundOwnerName)
	assert.Equal(t, 1, st.RoundNumber, "the counter survives a wipe")

	_, err = f.room.State(ctx, a)
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	all, err := f.source.All(ctx)
	require.NoError(t, err)
	for _, o := range all {
		assert.False(t, o.Listened)
	}

	c := f.join(t, "C")
	assert.Equal(t, "C", f.ownerName(t))
	_, err = f.room.NextRound(ctx, c, nil)
	assert.NoError(t, err)
}

func TestConcurrentAnswersAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = f.join(t, fmt.Sprintf("p%02d", i))
	}
	_, err := f.room.NextRound(ctx, ids[0], dur(20))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range ids {
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.room.Answer(ctx, id, "wrong")
			}()
		}
	}
	wg.Wait()

	stored, err := f.store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, len(ids))
	for _, p := range stored {
		assert.Equal(t, 1, p.Attempted, p.Name)
	}

	st, err := f.room.State(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, st.RoundResolved)
}

func TestRandomRound(t *testing.T) {
	f := newFixture(t)

	q, err := f.room.RandomRound(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, titles[q.OpeningID], q.CorrectOpeningTitle)
	assert.Contains(t, q.Options, types.Option{ID: q.OpeningID, Title: q.CorrectOpeningTitle})

	require.NoError(t, f.room.MarkListened(testCtx(t), q.OpeningID))
	assert.ErrorIs(t, f.room.MarkListened(testCtx(t), "nope"), opening.ErrOpeningNotFound)
}

func TestClosedRoom(t *testing.T) {
	f := newFixture(t)
	f.room.Close()

	_, err := f.room.Join(testCtx(t), "A", "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStalledPlaylistDoesNotStallTheRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	const fetchTimeout = 300 * time.Millisecond
	playlist := opening.NewPlaylist(opening.PlaylistConfig{
		PlaylistID: "PL",
		APIKey:     "key",
		BaseURL:    srv.URL,
		Timeout:    fetchTimeout,
	}, zap.NewNop())

	clk := &fakeClock{t: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	rm := New(context.Background(), Options{
		Directory: player.NewDirectory(storage.NewMemory()),
		Openings:  opening.NewFallback(playlist, opening.NewStatic(), zap.NewNop()),
		Rand:      rand.New(rand.NewPCG(3, 5)),
		Now:       clk.Now,
		Logger:    zap.NewNop(),
	})
	t.Cleanup(rm.Close)
	ctx := testCtx(t)

	joined, err := rm.Join(ctx, "A", "")
	require.NoError(t, err)
	a := joined.PlayerID

	// the first start pays for one failed fetch and falls back
	res, err := rm.NextRound(ctx, a, nil)
	require.NoError(t, err)
	assert.Contains(t, titles, res.Round.OpeningID, "served from the built-in openings")

	for range 3 {
		_, err = rm.Answer(ctx, a, "nope")
		require.NoError(t, err)

		start := time.Now()
		_, err = rm.NextRound(ctx, a, nil)
		require.NoError(t, err)
		_, err = rm.State(ctx, a)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), fetchTimeout/2, "later rounds skip the dead playlist")
	}
}
