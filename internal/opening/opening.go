package opening

import (
	"context"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
)

var (
	ErrNoOpenings      = domain.NotFound("No openings available")
	ErrOpeningNotFound = domain.NotFound("Opening not found")
)

type Opening struct {
	ID           string `json:"id"`
	AnimeTitle   string `json:"animeTitle"`
	OpeningTitle string `json:"openingTitle"`
	AudioURL     string `json:"audioUrl"`
	Listened     bool   `json:"listened"`
}

// Source supplies the pool of playable openings and tracks which were heard.
type Source interface {
	All(ctx context.Context) ([]Opening, error)
	MarkListened(ctx context.Context, id string) error
	ResetListened(ctx context.Context) error
}
