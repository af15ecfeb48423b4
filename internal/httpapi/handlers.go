package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

const maxBodyBytes = 1 << 20

var errBadBody = domain.Validation("Invalid request body")

// RoomService is the room as the HTTP layer sees it.
type RoomService interface {
	Join(ctx context.Context, name, password string) (types.JoinResponse, error)
	State(ctx context.Context, playerID string) (types.RoomState, error)
	NextRound(ctx context.Context, playerID string, durationSec *int) (types.NextRoundResponse, error)
	Answer(ctx context.Context, playerID, answerTitle string) (types.AnswerResponse, error)
	ResetScores(ctx context.Context, playerID string) ([]types.ScoreEntry, error)
	Leave(ctx context.Context, playerID string) error
	RandomRound(ctx context.Context) (types.QuizRound, error)
	MarkListened(ctx context.Context, openingID string) error
}

type Handlers struct {
	room RoomService
	log  *zap.Logger
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.OKResponse{OK: true})
}

func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var req types.JoinRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.room.Join(r.Context(), req.Name, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	res, err := h.room.State(r.Context(), r.URL.Query().Get("playerId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) NextRound(w http.ResponseWriter, r *http.Request) {
	var req types.NextRoundRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.room.NextRound(r.Context(), req.PlayerID, req.RoundDurationSeconds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req types.AnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.room.Answer(r.Context(), req.PlayerID, req.AnswerTitle)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ResetScores(w http.ResponseWriter, r *http.Request) {
	var req types.PlayerRequest
	if !h.decode(w, r, &req) {
		return
	}
	board, err := h.room.ResetScores(r.Context(), req.PlayerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ResetScoresResponse{OK: true, Scoreboard: board})
}

func (h *Handlers) Leave(w http.ResponseWriter, r *http.Request) {
	var req types.PlayerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.room.Leave(r.Context(), req.PlayerID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.OKResponse{OK: true})
}

func (h *Handlers) RandomOpening(w http.ResponseWriter, r *http.Request) {
	res, err := h.room.RandomRound(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) MarkListened(w http.ResponseWriter, r *http.Request) {
	if err := h.room.MarkListened(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.OKResponse{OK: true})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.log.Debug("bad request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: domain.Message(errBadBody)})
		return false
	}
	return true
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Stringer("kind", kind), zap.Error(err))
	}
	writeJSON(w, statusFor(kind), types.ErrorResponse{Error: domain.Message(err)})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
