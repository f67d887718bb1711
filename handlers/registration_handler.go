package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tournament-engine/services"
)

type RegistrationHandler struct {
	registrations services.RegistrationService
}

func NewRegistrationHandler(registrations services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// RegisterPartyHandler handles POST /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) RegisterPartyHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		SteamIDs []string `json:"steam_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrations.RegisterParty(r.Context(), tournamentID, input.SteamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UnregisterHandler handles DELETE /tournaments/{tournamentID}/registrations/{steamID}
func (h *RegistrationHandler) UnregisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	steamID := chi.URLParam(r, "steamID")
	if steamID == "" {
		badRequestResponse(w, r, errors.New("invalid steamID parameter"))
		return
	}

	if err := h.registrations.UnregisterPlayer(r.Context(), tournamentID, steamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHandler handles GET /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.registrations.ListParties(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReadyCheckAnswerHandler handles POST /tournaments/{tournamentID}/ready-check
func (h *RegistrationHandler) ReadyCheckAnswerHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		SteamID string `json:"steam_id"`
		Confirm bool   `json:"confirm"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.SteamID == "" {
		badRequestResponse(w, r, errors.New("steam_id is required"))
		return
	}

	if input.Confirm {
		err = h.registrations.ConfirmPlayer(r.Context(), tournamentID, input.SteamID)
	} else {
		err = h.registrations.DeclinePlayer(r.Context(), tournamentID, input.SteamID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
