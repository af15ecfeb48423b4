package opening

import (
	"context"
	"math/rand/v2"

	"github.com/DoyleJ11/op-quiz-backend/internal/round"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

// NewRound picks the opening to play, preferring ones nobody has heard yet, and
// offers every known title as an option in shuffled order.
func NewRound(ctx context.Context, src Source, rng *rand.Rand) (round.Payload, error) {
	all, err := src.All(ctx)
	if err != nil {
		return round.Payload{}, err
	}
	if len(all) == 0 {
		return round.Payload{}, ErrNoOpenings
	}

	pool := make([]Opening, 0, len(all))
	for _, o := range all {
		if !o.Listened {
			pool = append(pool, o)
		}
	}
	if len(pool) == 0 {
		pool = all
	}
	chosen := pool[rng.IntN(len(pool))]

	options := make([]types.Option, len(all))
	for i, o := range all {
		options[i] = types.Option{ID: o.ID, Title: o.OpeningTitle}
	}
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return round.Payload{
		OpeningID:    chosen.ID,
		AudioURL:     chosen.AudioURL,
		Options:      options,
		CorrectTitle: chosen.OpeningTitle,
	}, nil
}
