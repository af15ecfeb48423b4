package opening

import (
	"context"
	"slices"
	"sync"
)

var builtin = []Opening{
	{
		ID:           "naruto-blue-bird",
		AnimeTitle:   "Naruto Shippuden",
		OpeningTitle: "Blue Bird",
		AudioURL:     "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3",
	},
	{
		ID:           "aot-guren-no-yumiya",
		AnimeTitle:   "Attack on Titan",
		OpeningTitle: "Guren no Yumiya",
		AudioURL:     "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3",
	},
	{
		ID:           "fmab-again",
		AnimeTitle:   "Fullmetal Alchemist: Brotherhood",
		OpeningTitle: "Again",
		AudioURL:     "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3",
	},
	{
		ID:           "death-note-world",
		AnimeTitle:   "Death Note",
		OpeningTitle: "The World",
		AudioURL:     "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-4.mp3",
	},
	{
		ID:           "demon-slayer-gurenge",
		AnimeTitle:   "Demon Slayer",
		OpeningTitle: "Gurenge",
		AudioURL:     "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-5.mp3",
	},
}

// Static serves a fixed list and never fails. Listened flags live in memory.
type Static struct {
	mu       sync.Mutex
	openings []Opening
}

// NewStatic uses the built-in list when no openings are given.
func NewStatic(openings ...Opening) *Static {
	if len(openings) == 0 {
		openings = builtin
	}
	return &Static{openings: slices.Clone(openings)}
}

func (s *Static) All(_ context.Context) ([]Opening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.openings), nil
}

func (s *Static) MarkListened(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.openings, func(o Opening) bool { return o.ID == id })
	if i < 0 {
		return ErrOpeningNotFound
	}
	s.openings[i].Listened = true
	return nil
}

func (s *Static) ResetListened(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.openings {
		s.openings[i].Listened = false
	}
	return nil
}
