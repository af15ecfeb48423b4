package player

import (
	"context"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
)

var (
	ErrNameRequired   = domain.Validation("Name is required")
	ErrBadPassword    = domain.Auth("Invalid room password")
	ErrPlayerNotFound = domain.NotFound("Player not found")
)

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Correct   int    `json:"correct"`
	Attempted int    `json:"attempted"`
}

// Repository is the durable mirror of the directory. Implementations replace the
// whole set on WriteAll; callers serialize read-modify-write cycles.
type Repository interface {
	ReadAll(ctx context.Context) ([]Player, error)
	WriteAll(ctx context.Context, players []Player) error
}
