package player

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

// Directory maps player ids to live records and writes every change through to
// the repository. It is not safe for concurrent use; the room actor owns it.
type Directory struct {
	repo         Repository
	players      map[string]*Player
	newID        func() string
	passwordHash []byte
}

type Option func(*Directory)

// WithPasswordHash requires joins to present the password behind hash, as
// produced by HashPassword.
func WithPasswordHash(hash []byte) Option {
	return func(d *Directory) { d.passwordHash = hash }
}

func WithIDGenerator(gen func() string) Option {
	return func(d *Directory) { d.newID = gen }
}

func NewDirectory(repo Repository, opts ...Option) *Directory {
	d := &Directory{
		repo:    repo,
		players: make(map[string]*Player),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HashPassword turns a plain room password into the hash WithPasswordHash
// expects. The trimmed password is digested with SHA-256 first, so bcrypt's
// 72-byte input limit never truncates or rejects it.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(digest(plain), bcrypt.DefaultCost)
}

func digest(password string) []byte {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return []byte(hex.EncodeToString(sum[:]))
}

// CheckPassword verifies a join password. The hash is fixed at construction,
// so this is safe to call from any goroutine.
func (d *Directory) CheckPassword(password string) error {
	if len(d.passwordHash) == 0 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(d.passwordHash, digest(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

func (d *Directory) Join(ctx context.Context, name, password string) (Player, error) {
	if strings.TrimSpace(name) == "" {
		return Player{}, ErrNameRequired
	}
	if err := d.CheckPassword(password); err != nil {
		return Player{}, err
	}
	return d.Admit(ctx, name)
}

// Admit adds a player whose password was already checked.
func (d *Directory) Admit(ctx context.Context, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, ErrNameRequired
	}

	p := Player{ID: d.newID(), Name: name}
	if err := d.upsert(ctx, p); err != nil {
		return Player{}, err
	}
	d.players[p.ID] = &p
	return p, nil
}

// Resolve checks memory first and falls back to the repository, hydrating the
// live set so a restarted process picks returning players back up.
func (d *Directory) Resolve(ctx context.Context, id string) (Player, error) {
	if id == "" {
		return Player{}, ErrPlayerNotFound
	}
	if p, ok := d.players[id]; ok {
		return *p, nil
	}

	stored, err := d.repo.ReadAll(ctx)
	if err != nil {
		return Player{}, fmt.Errorf("read players: %w", err)
	}
	for _, p := range stored {
		if p.ID == id {
			d.players[id] = &p
			return p, nil
		}
	}
	return Player{}, ErrPlayerNotFound
}

func (d *Directory) UpdateAfterAnswer(ctx context.Context, id string, correct bool) (Player, error) {
	p, err := d.Resolve(ctx, id)
	if err != nil {
		return Player{}, err
	}

	p.Attempted++
	if correct {
		p.Correct++
		p.Score++
	}
	if err := d.upsert(ctx, p); err != nil {
		return Player{}, err
	}
	d.players[id] = &p
	return p, nil
}

// ResetAll zeroes every stored and live player.
func (d *Directory) ResetAll(ctx context.Context) error {
	stored, err := d.repo.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read players: %w", err)
	}
	for i := range stored {
		stored[i].Score, stored[i].Correct, stored[i].Attempted = 0, 0, 0
	}
	if err := d.repo.WriteAll(ctx, stored); err != nil {
		return fmt.Errorf("write players: %w", err)
	}

	for _, p := range d.players {
		p.Score, p.Correct, p.Attempted = 0, 0, 0
	}
	return nil
}

func (d *Directory) Remove(ctx context.Context, id string) error {
	stored, err := d.repo.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read players: %w", err)
	}
	kept := slices.DeleteFunc(stored, func(p Player) bool { return p.ID == id })
	if err := d.repo.WriteAll(ctx, kept); err != nil {
		return fmt.Errorf("write players: %w", err)
	}

	delete(d.players, id)
	return nil
}

// Clear forgets everyone, durably too.
func (d *Directory) Clear(ctx context.Context) error {
	if err := d.repo.WriteAll(ctx, nil); err != nil {
		return fmt.Errorf("write players: %w", err)
	}
	clear(d.players)
	return nil
}

func (d *Directory) Has(id string) bool {
	_, ok := d.players[id]
	return ok
}

// PresentIDs lists live player ids in a stable order.
func (d *Directory) PresentIDs() []string {
	ids := make([]string, 0, len(d.players))
	for id := range d.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (d *Directory) Scoreboard(ctx context.Context) ([]types.ScoreEntry, error) {
	stored, err := d.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}
	return Rank(stored), nil
}

func (d *Directory) upsert(ctx context.Context, p Player) error {
	stored, err := d.repo.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read players: %w", err)
	}

	i := slices.IndexFunc(stored, func(row Player) bool { return row.ID == p.ID })
	if i >= 0 {
		stored[i] = p
	} else {
		stored = append(stored, p)
	}

	if err := d.repo.WriteAll(ctx, stored); err != nil {
		return fmt.Errorf("write players: %w", err)
	}
	return nil
}
