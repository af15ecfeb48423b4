package room

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/opening"
	"github.com/DoyleJ11/op-quiz-backend/internal/player"
	"github.com/DoyleJ11/op-quiz-backend/internal/round"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

// Everything in this file runs on the loop goroutine.

func (r *Room) join(ctx context.Context, name string) (types.JoinResponse, error) {
	p, err := r.dir.Admit(ctx, name)
	if err != nil {
		return types.JoinResponse{}, err
	}
	if r.ownerID == "" {
		r.ownerID = p.ID
	}
	r.log.Info("player joined", zap.String("player_id", p.ID), zap.String("name", p.Name))
	return types.JoinResponse{RoomID: ID, PlayerID: p.ID, Name: p.Name}, nil
}

// ensureOwner keeps the owner while they are present, else draws a new one.
func (r *Room) ensureOwner() string {
	r.ownerID = round.PickOwner(r.ownerID, r.dir.PresentIDs(), r.rng)
	return r.ownerID
}

func (r *Room) project(ctx context.Context, playerID string) (types.RoomState, error) {
	if playerID != "" {
		if _, err := r.dir.Resolve(ctx, playerID); err != nil {
			return types.RoomState{}, err
		}
	}

	owner := r.ensureOwner()
	board, err := r.dir.Scoreboard(ctx)
	if err != nil {
		return types.RoomState{}, err
	}

	now := r.now()
	cur := r.state.Current
	resolved := round.DerivePhase(r.state, now) != round.PhaseActive

	out := types.RoomState{
		RoomID:            ID,
		RoundNumber:       r.state.Number,
		RoundResolved:     resolved,
		CanStartNextRound: playerID != "" && playerID == owner && resolved,
		Scoreboard:        board,
	}
	if owner != "" {
		out.NextRoundOwnerName = nameOf(board, owner)
	}
	if cur != nil {
		out.Round = &types.RoundView{
			PublicRound:          cur.Public(),
			RoundDurationSeconds: cur.DurationSec,
			RoundEndsAt:          cur.Deadline().UnixMilli(),
		}
		out.HasAnswered = playerID != "" && cur.Answered[playerID]
		if cur.WinnerID != "" {
			out.RoundWinnerName = nameOf(board, cur.WinnerID)
		}
	}
	return out, nil
}

func nameOf(board []types.ScoreEntry, id string) *string {
	name, ok := player.NameOf(board, id)
	if !ok {
		return nil
	}
	return &name
}

func (r *Room) nextRound(ctx context.Context, playerID string, requested *int) (types.NextRoundResponse, error) {
	if _, err := r.dir.Resolve(ctx, playerID); err != nil {
		return types.NextRoundResponse{}, err
	}

	owner := r.ensureOwner()
	switch {
	case owner == "":
		return types.NextRoundResponse{}, ErrNoOwner
	case owner != playerID:
		return types.NextRoundResponse{}, ErrNotOwner
	}

	now := r.now()
	if cur := r.state.Current; cur != nil && !cur.IsResolved(now) {
		return types.NextRoundResponse{}, round.ErrRoundActive
	}
	duration, err := round.ResolveDuration(requested)
	if err != nil {
		return types.NextRoundResponse{}, err
	}

	payload, err := opening.NewRound(ctx, r.openings, r.rng)
	if err != nil {
		return types.NextRoundResponse{}, err
	}

	_, next, err := round.Apply(r.state, round.Command{
		Type:         round.CmdStart,
		PlayerID:     playerID,
		DurationSec:  duration,
		Payload:      payload,
		Participants: r.dir.PresentIDs(),
	}, r.now())
	if err != nil {
		return types.NextRoundResponse{}, err
	}
	r.state = next

	r.log.Info("round started",
		zap.Int("round", next.Number),
		zap.String("opening_id", payload.OpeningID),
		zap.Int("duration_sec", duration),
		zap.Int("participants", len(next.Current.Participants)),
	)
	return types.NextRoundResponse{RoundNumber: next.Number, Round: next.Current.Public()}, nil
}

func (r *Room) answer(ctx context.Context, playerID, title string) (types.AnswerResponse, error) {
	if _, err := r.dir.Resolve(ctx, playerID); err != nil {
		return types.AnswerResponse{}, err
	}

	events, next, err := round.Apply(r.state, round.Command{
		Type:     round.CmdAnswer,
		PlayerID: playerID,
		Answer:   title,
	}, r.now())
	if err != nil {
		return types.AnswerResponse{}, err
	}

	// scores are written before the round state is committed
	correct := false
	for _, ev := range events {
		if ev.Type != round.EvtAnswerRecorded {
			continue
		}
		correct = ev.Correct
		if _, err := r.dir.UpdateAfterAnswer(ctx, playerID, ev.Correct); err != nil {
			return types.AnswerResponse{}, fmt.Errorf("record answer: %w", err)
		}
	}
	r.state = next

	for _, ev := range events {
		if ev.Type == round.EvtRoundWon {
			r.ownerID = ev.PlayerID
			r.log.Info("round won", zap.Int("round", next.Number), zap.String("player_id", ev.PlayerID))
		}
	}

	cur := next.Current
	if correct {
		if err := r.openings.MarkListened(ctx, cur.OpeningID); err != nil {
			r.log.Warn("could not mark opening listened", zap.String("opening_id", cur.OpeningID), zap.Error(err))
		}
	}

	board, err := r.dir.Scoreboard(ctx)
	if err != nil {
		return types.AnswerResponse{}, err
	}
	return types.AnswerResponse{
		Correct:             correct,
		CorrectOpeningTitle: cur.CorrectTitle,
		OpeningID:           cur.OpeningID,
		Scoreboard:          board,
	}, nil
}

func (r *Room) resetScores(ctx context.Context, playerID string) ([]types.ScoreEntry, error) {
	if _, err := r.dir.Resolve(ctx, playerID); err != nil {
		return nil, err
	}
	if err := r.dir.ResetAll(ctx); err != nil {
		return nil, err
	}
	r.log.Info("scores reset", zap.String("player_id", playerID))
	return r.dir.Scoreboard(ctx)
}

func (r *Room) leave(ctx context.Context, playerID string) error {
	if playerID == "" {
		return player.ErrPlayerNotFound
	}
	if err := r.dir.Remove(ctx, playerID); err != nil {
		return err
	}

	events, next, err := round.Apply(r.state, round.Command{Type: round.CmdRemovePlayer, PlayerID: playerID}, r.now())
	if err != nil {
		return err
	}
	r.state = next
	if round.ContainsEvent(events, round.EvtRoundResolved) {
		r.log.Debug("round resolved by departure", zap.Int("round", next.Number))
	}

	if r.ownerID == playerID {
		r.ownerID = ""
		r.ensureOwner()
	}
	r.log.Info("player left", zap.String("player_id", playerID))
	return nil
}

func (r *Room) wipe(ctx context.Context) error {
	if err := r.dir.Clear(ctx); err != nil {
		return err
	}
	_, next, err := round.Apply(r.state, round.Command{Type: round.CmdClearPlayers}, r.now())
	if err != nil {
		return err
	}
	r.state = next
	r.ownerID = ""

	if err := r.openings.ResetListened(ctx); err != nil {
		r.log.Warn("could not reset listened openings", zap.Error(err))
	}
	r.log.Info("room wiped")
	return nil
}
