package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Activity is told about every room request so idle detection can reset.
type Activity interface {
	Touch()
}

func SetupRoutes(room RoomService, activity Activity, log *zap.Logger) http.Handler {
	h := &Handlers{room: room, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)

		r.Route("/room", func(r chi.Router) {
			r.Use(touch(activity))
			r.Post("/join", h.Join)
			r.Get("/state", h.State)
			r.Post("/next-round", h.NextRound)
			r.Post("/answer", h.Answer)
			r.Post("/reset-scores", h.ResetScores)
			r.Post("/leave", h.Leave)
		})

		r.Get("/openings/random", h.RandomOpening)
		r.Post("/openings/{id}/listened", h.MarkListened)
	})
	return r
}
