package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournament-engine/handlers"
)

type Handlers struct {
	Tournaments   *handlers.TournamentHandler
	Registrations *handlers.RegistrationHandler
	Matches       *handlers.MatchHandler
	WebSocket     *handlers.WebSocketHandler
}

func InitRoutes(h Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournaments.ListHandler)
		r.Post("/", h.Tournaments.CreateHandler)
		r.Get("/{tournamentID}", h.Tournaments.GetByIDHandler)
		r.Patch("/{tournamentID}/status", h.Tournaments.UpdateStatusHandler)
		r.Post("/{tournamentID}/bracket/regenerate", h.Tournaments.RegenerateBracketHandler)
		r.Put("/{tournamentID}/logo", h.Tournaments.UploadLogoHandler)

		r.Get("/{tournamentID}/registrations", h.Registrations.ListHandler)
		r.Post("/{tournamentID}/registrations", h.Registrations.RegisterPartyHandler)
		r.Delete("/{tournamentID}/registrations/{steamID}", h.Registrations.UnregisterHandler)
		r.Post("/{tournamentID}/ready-check", h.Registrations.ReadyCheckAnswerHandler)
	})

	router.Route("/webhooks", func(r chi.Router) {
		r.Post("/game-result", h.Matches.GameResultHandler)
		r.Post("/match-failed", h.Matches.MatchFailedHandler)
		r.Post("/match-cancelled", h.Matches.MatchCancelledHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
