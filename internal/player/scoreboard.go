package player

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

// Rank projects stored players onto the scoreboard: score desc, then correct
// desc, then name in locale order (case-insensitive).
func Rank(players []Player) []types.ScoreEntry {
	entries := make([]types.ScoreEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, types.ScoreEntry{
			PlayerID:  p.ID,
			Name:      p.Name,
			Score:     p.Score,
			Correct:   p.Correct,
			Attempted: p.Attempted,
		})
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(entries, func(a, b types.ScoreEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if a.Correct != b.Correct {
			return b.Correct - a.Correct
		}
		return col.CompareString(a.Name, b.Name)
	})
	return entries
}

// NameOf finds a display name on a ranked board.
func NameOf(board []types.ScoreEntry, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	for _, e := range board {
		if e.PlayerID == id {
			return e.Name, true
		}
	}
	return "", false
}
