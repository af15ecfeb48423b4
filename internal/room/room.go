package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
	"github.com/DoyleJ11/op-quiz-backend/internal/opening"
	"github.com/DoyleJ11/op-quiz-backend/internal/player"
	"github.com/DoyleJ11/op-quiz-backend/internal/round"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

const ID = "main-room"

var (
	ErrNoOwner  = domain.Conflict("No players available to choose the next opening")
	ErrNotOwner = domain.Conflict("Only the selected player can start the next opening")
	ErrClosed   = errors.New("room is closed")
)

type Options struct {
	Directory *player.Directory
	Openings  opening.Source
	Rand      *rand.Rand
	Now       func() time.Time
	Logger    *zap.Logger
	// OpTimeout bounds the storage and opening-source work of one request.
	OpTimeout time.Duration
}

// Room is the single shared game session. One goroutine owns the round state,
// the next-round owner and the player directory; every public method is a
// message to that goroutine, so operations never interleave.
type Room struct {
	inbox chan msg

	dir       *player.Directory
	openings  opening.Source
	rng       *rand.Rand
	now       func() time.Time
	log       *zap.Logger
	opTimeout time.Duration

	state   round.State
	ownerID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:     make(chan msg, 64),
		dir:       opts.Directory,
		openings:  opts.Openings,
		rng:       opts.Rand,
		now:       opts.Now,
		log:       opts.Logger,
		opTimeout: opts.OpTimeout,
		state:     round.NewEmptyState(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.opTimeout <= 0 {
		r.opTimeout = 15 * time.Second
	}

	go r.loop()
	return r
}

// Close stops the loop and waits for it to exit.
func (r *Room) Close() {
	r.cancel()
	<-r.done
}

func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-r.inbox:
			r.handle(m)
		}
	}
}

func (r *Room) handle(m msg) {
	ctx, cancel := context.WithTimeout(r.ctx, r.opTimeout)
	defer cancel()

	switch m := m.(type) {
	case joinMsg:
		res, err := r.join(ctx, m.name)
		m.reply <- reply[types.JoinResponse]{res, err}
	case stateMsg:
		res, err := r.project(ctx, m.playerID)
		m.reply <- reply[types.RoomState]{res, err}
	case nextRoundMsg:
		res, err := r.nextRound(ctx, m.playerID, m.duration)
		m.reply <- reply[types.NextRoundResponse]{res, err}
	case answerMsg:
		res, err := r.answer(ctx, m.playerID, m.title)
		m.reply <- reply[types.AnswerResponse]{res, err}
	case resetScoresMsg:
		res, err := r.resetScores(ctx, m.playerID)
		m.reply <- reply[[]types.ScoreEntry]{res, err}
	case leaveMsg:
		m.reply <- reply[struct{}]{err: r.leave(ctx, m.playerID)}
	case wipeMsg:
		m.reply <- reply[struct{}]{err: r.wipe(ctx)}
	case forkRandMsg:
		m.reply <- reply[*rand.Rand]{val: rand.New(rand.NewPCG(r.rng.Uint64(), r.rng.Uint64()))}
	}
}

// call hands a message to the loop and waits for its reply. Reply channels are
// buffered so the loop never blocks on a caller that gave up.
func call[T any](ctx context.Context, r *Room, build func(chan reply[T]) msg) (T, error) {
	var zero T
	ch := make(chan reply[T], 1)

	select {
	case r.inbox <- build(ch):
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.ctx.Done():
		return zero, ErrClosed
	}

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.ctx.Done():
		return zero, ErrClosed
	}
}

// Join checks the password on the caller's goroutine so a bcrypt compare
// never holds up the loop. A blank name is reported before a bad password.
func (r *Room) Join(ctx context.Context, name, password string) (types.JoinResponse, error) {
	if strings.TrimSpace(name) == "" {
		return types.JoinResponse{}, player.ErrNameRequired
	}
	if err := r.dir.CheckPassword(password); err != nil {
		return types.JoinResponse{}, err
	}
	return call(ctx, r, func(ch chan reply[types.JoinResponse]) msg {
		return joinMsg{name: name, reply: ch}
	})
}

// State projects the room for playerID; an empty id yields the anonymous view.
func (r *Room) State(ctx context.Context, playerID string) (types.RoomState, error) {
	return call(ctx, r, func(ch chan reply[types.RoomState]) msg {
		return stateMsg{playerID: playerID, reply: ch}
	})
}

func (r *Room) NextRound(ctx context.Context, playerID string, durationSec *int) (types.NextRoundResponse, error) {
	return call(ctx, r, func(ch chan reply[types.NextRoundResponse]) msg {
		return nextRoundMsg{playerID: playerID, duration: durationSec, reply: ch}
	})
}

func (r *Room) Answer(ctx context.Context, playerID, answerTitle string) (types.AnswerResponse, error) {
	return call(ctx, r, func(ch chan reply[types.AnswerResponse]) msg {
		return answerMsg{playerID: playerID, title: answerTitle, reply: ch}
	})
}

func (r *Room) ResetScores(ctx context.Context, playerID string) ([]types.ScoreEntry, error) {
	return call(ctx, r, func(ch chan reply[[]types.ScoreEntry]) msg {
		return resetScoresMsg{playerID: playerID, reply: ch}
	})
}

func (r *Room) Leave(ctx context.Context, playerID string) error {
	_, err := call(ctx, r, func(ch chan reply[struct{}]) msg {
		return leaveMsg{playerID: playerID, reply: ch}
	})
	return err
}

// Wipe forgets every player, empties the current round and clears the
// listened flags of the opening source.
func (r *Room) Wipe(ctx context.Context) error {
	_, err := call(ctx, r, func(ch chan reply[struct{}]) msg {
		return wipeMsg{reply: ch}
	})
	return err
}

// RandomRound builds a standalone round payload outside of the room's turn order.
func (r *Room) RandomRound(ctx context.Context) (types.QuizRound, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	// the loop goroutine owns rng
	rng, err := call(ctx, r, func(ch chan reply[*rand.Rand]) msg {
		return forkRandMsg{reply: ch}
	})
	if err != nil {
		return types.QuizRound{}, err
	}
	p, err := opening.NewRound(ctx, r.openings, rng)
	if err != nil {
		return types.QuizRound{}, err
	}
	return types.QuizRound{
		OpeningID:           p.OpeningID,
		AudioURL:            p.AudioURL,
		Options:             p.Options,
		CorrectOpeningTitle: p.CorrectTitle,
	}, nil
}

func (r *Room) MarkListened(ctx context.Context, openingID string) error {
	return r.openings.MarkListened(ctx, openingID)
}
