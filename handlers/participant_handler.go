package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-bracket/services"
)

type ParticipantHandler struct {
	tournamentService services.TournamentService
}

func NewParticipantHandler(ts services.TournamentService) *ParticipantHandler {
	return &ParticipantHandler{tournamentService: ts}
}

type AddParticipantsRequest struct {
	Names []string `json:"names"`
}

// AddHandler godoc
// @Summary      Register participants
// @Description  Adds every name or none of them. Only allowed before the tournament starts.
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        tournamentID  path      string                  true  "Tournament ID"
// @Param        input         body      AddParticipantsRequest  true  "Names"
// @Success      201           {object}  map[string][]models.Participant
// @Failure      409           {object}  map[string]string
// @Failure      422           {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /tournaments/{tournamentID}/participants [post]
func (h *ParticipantHandler) AddHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input AddParticipantsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.AddParticipants(r.Context(), tournamentID, input.Names)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler godoc
// @Summary      List participants
// @Tags         participants
// @Produce      json
// @Param        tournamentID  path      string  true  "Tournament ID"
// @Success      200           {object}  map[string][]models.Participant
// @Router       /tournaments/{tournamentID}/participants [get]
func (h *ParticipantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler godoc
// @Summary      Remove a participant
// @Description  In a running tournament the participant is disqualified from its open match first.
// @Tags         participants
// @Param        tournamentID   path  string  true  "Tournament ID"
// @Param        participantID  path  string  true  "Participant ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /tournaments/{tournamentID}/participants/{participantID} [delete]
func (h *ParticipantHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.RemoveParticipant(r.Context(), tournamentID, participantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
