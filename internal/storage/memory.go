package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/DoyleJ11/op-quiz-backend/internal/player"
)

// Memory keeps players for the life of the process only.
type Memory struct {
	mu      sync.Mutex
	players []player.Player
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadAll(_ context.Context) ([]player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.players), nil
}

func (m *Memory) WriteAll(_ context.Context, players []player.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = slices.Clone(players)
	return nil
}
