package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_Ordering(t *testing.T) {
	players := []Player{
		{ID: "1", Name: "bob", Score: 2, Correct: 2},
		{ID: "2", Name: "Ana", Score: 2, Correct: 2},
		{ID: "3", Name: "Cy", Score: 5, Correct: 5},
		{ID: "4", Name: "Dee", Score: 2, Correct: 3},
		{ID: "5", Name: "Émile", Score: 0},
		{ID: "6", Name: "Eve", Score: 0},
	}

	board := Rank(players)

	var names []string
	for _, e := range board {
		names = append(names, e.Name)
	}
	// Score desc, correct desc, then case-insensitive locale order (É sorts with E).
	assert.Equal(t, []string{"Cy", "Dee", "Ana", "bob", "Émile", "Eve"}, names)
}

func TestRank_Projection(t *testing.T) {
	board := Rank([]Player{{ID: "x", Name: "Ana", Score: 1, Correct: 1, Attempted: 3}})
	assert.Len(t, board, 1)
	assert.Equal(t, "x", board[0].PlayerID)
	assert.Equal(t, 3, board[0].Attempted)
	assert.Empty(t, Rank(nil))
}

func TestNameOf(t *testing.T) {
	board := Rank([]Player{{ID: "x", Name: "Ana"}})

	name, ok := NameOf(board, "x")
	assert.True(t, ok)
	assert.Equal(t, "Ana", name)

	_, ok = NameOf(board, "y")
	assert.False(t, ok)
	_, ok = NameOf(board, "")
	assert.False(t, ok)
}
