package opening

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
)

type failingSource struct{ err error }

func (f failingSource) All(context.Context) ([]Opening, error)      { return nil, f.err }
func (f failingSource) MarkListened(context.Context, string) error { return f.err }
func (f failingSource) ResetListened(context.Context) error        { return f.err }

func TestStaticListened(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	require.NoError(t, s.MarkListened(ctx, "fmab-again"))
	all[0].Listened = true // callers get a copy

	all, _ = s.All(ctx)
	for _, o := range all {
		assert.Equal(t, o.ID == "fmab-again", o.Listened, o.ID)
	}

	err = s.MarkListened(ctx, "nope")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	require.NoError(t, s.ResetListened(ctx))
	all, _ = s.All(ctx)
	for _, o := range all {
		assert.False(t, o.Listened)
	}
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	static := NewStatic()
	f := NewFallback(failingSource{err: errors.New("quota exceeded")}, static, zap.NewNop())

	all, err := f.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, f.MarkListened(ctx, "death-note-world"))
	all, _ = static.All(ctx)
	assert.True(t, all[3].Listened)

	require.NoError(t, f.ResetListened(ctx))
	all, _ = static.All(ctx)
	assert.False(t, all[3].Listened)
}

func TestFallbackPrefersPrimary(t *testing.T) {
	primary := NewStatic(Opening{ID: "only", OpeningTitle: "Only"})
	f := NewFallback(primary, NewStatic(), zap.NewNop())

	all, err := f.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "only", all[0].ID)
}

func TestAnimeTitle(t *testing.T) {
	tests := []struct {
		title, channel, want string
	}{
		{"Naruto Shippuden - Blue Bird", "chan", "Naruto Shippuden"},
		{"Bleach | Asterisk", "chan", "Bleach"},
		{"One Piece / We Are!", "chan", "One Piece"},
		{"Haikyuu!! \u2014 Imagination", "chan", "Haikyuu!!"},
		{"Jujutsu Kaisen OP 2", "chan", "Jujutsu Kaisen"},
		{"Chainsaw Man Opening", "chan", "Chainsaw Man"},
		{"KICK BACK", "Kenshi Yonezu", "Kenshi Yonezu"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, animeTitle(tt.title, tt.channel))
		})
	}
}

func TestNewRound(t *testing.T) {
	ctx := context.Background()

	t.Run("no openings", func(t *testing.T) {
		empty := &Static{}
		_, err := NewRound(ctx, empty, rand.New(rand.NewPCG(1, 2)))
		assert.ErrorIs(t, err, ErrNoOpenings)
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewRound(ctx, failingSource{err: boom}, rand.New(rand.NewPCG(1, 2)))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("prefers unlistened and offers every title", func(t *testing.T) {
		s := NewStatic()
		for _, id := range []string{"naruto-blue-bird", "aot-guren-no-yumiya", "fmab-again", "death-note-world"} {
			require.NoError(t, s.MarkListened(ctx, id))
		}
		rng := rand.New(rand.NewPCG(7, 7))
		for range 20 {
			p, err := NewRound(ctx, s, rng)
			require.NoError(t, err)
			assert.Equal(t, "demon-slayer-gurenge", p.OpeningID)
			assert.Equal(t, "Gurenge", p.CorrectTitle)
			assert.Len(t, p.Options, 5)

			ids := make([]string, len(p.Options))
			for i, o := range p.Options {
				ids[i] = o.ID
			}
			assert.ElementsMatch(t, []string{
				"naruto-blue-bird", "aot-guren-no-yumiya", "fmab-again", "death-note-world", "demon-slayer-gurenge",
			}, ids)
		}
	})

	t.Run("all listened falls back to everything", func(t *testing.T) {
		s := NewStatic()
		all, _ := s.All(ctx)
		for _, o := range all {
			require.NoError(t, s.MarkListened(ctx, o.ID))
		}
		seen := map[string]bool{}
		rng := rand.New(rand.NewPCG(3, 4))
		for range 100 {
			p, err := NewRound(ctx, s, rng)
			require.NoError(t, err)
			seen[p.OpeningID] = true
		}
		assert.Greater(t, len(seen), 1)
	})

	t.Run("seeded rng is deterministic", func(t *testing.T) {
		a, err := NewRound(ctx, NewStatic(), rand.New(rand.NewPCG(9, 9)))
		require.NoError(t, err)
		b, err := NewRound(ctx, NewStatic(), rand.New(rand.NewPCG(9, 9)))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
