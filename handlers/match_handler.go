package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/services"
)

// MatchHandler exposes the provider-facing webhooks. Each webhook is
// translated into the matching bus event and handled synchronously, so
// the provider sees the real outcome code.
type MatchHandler struct {
	progression services.ProgressionService
}

func NewMatchHandler(progression services.ProgressionService) *MatchHandler {
	return &MatchHandler{progression: progression}
}

// GameResultHandler handles POST /webhooks/game-result
func (h *MatchHandler) GameResultHandler(w http.ResponseWriter, r *http.Request) {
	var input events.GameResult
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.progression.RecordGameResult(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchFailedHandler handles POST /webhooks/match-failed
func (h *MatchHandler) MatchFailedHandler(w http.ResponseWriter, r *http.Request) {
	var input events.MatchFailed
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	err := h.progression.HandleMatchFailed(r.Context(), input)
	if errors.Is(err, services.ErrAmbiguousForfeit) {
		// The failure was recorded and flagged; the match awaits an operator.
		if err := writeJSON(w, http.StatusAccepted, jsonResponse{"status": err.Error()}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchCancelledHandler handles POST /webhooks/match-cancelled
func (h *MatchHandler) MatchCancelledHandler(w http.ResponseWriter, r *http.Request) {
	var input events.MatchCancelled
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.progression.HandleMatchCancelled(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
