package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-bracket/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type DisqualifyRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
}

// matchIDs reads both path ids, writing the 400 response itself on failure.
func matchIDs(w http.ResponseWriter, r *http.Request) (tournamentID, matchID uuid.UUID, ok bool) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	matchID, err = getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return tournamentID, matchID, true
}

// ListHandler godoc
// @Summary      Bracket of a tournament
// @Tags         matches
// @Produce      json
// @Param        tournamentID  path      string  true  "Tournament ID"
// @Success      200           {object}  map[string][]models.Match
// @Router       /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler godoc
// @Summary      Get a match
// @Tags         matches
// @Produce      json
// @Param        tournamentID  path      string  true  "Tournament ID"
// @Param        matchID       path      string  true  "Match ID"
// @Success      200           {object}  map[string]models.Match
// @Failure      404           {object}  map[string]string
// @Router       /tournaments/{tournamentID}/matches/{matchID} [get]
func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, ok := matchIDs(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler godoc
// @Summary      Start a match
// @Tags         matches
// @Produce      json
// @Param        tournamentID  path      string  true  "Tournament ID"
// @Param        matchID       path      string  true  "Match ID"
// @Success      200           {object}  map[string]models.Match
// @Failure      409           {object}  map[string]string
// @Security     BearerAuth
// @Router       /tournaments/{tournamentID}/matches/{matchID}/start [post]
func (h *MatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, ok := matchIDs(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler godoc
// @Summary      Record scores, optionally finishing the match
// @Description  A finished match needs a strict score leader or an explicit winner_id. Returns every changed match.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        tournamentID  path      string                     true  "Tournament ID"
// @Param        matchID       path      string                     true  "Match ID"
// @Param        input         body      services.UpdateMatchInput  true  "Scores"
// @Success      200           {object}  map[string][]models.Match
// @Failure      409           {object}  map[string]string
// @Failure      422           {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /tournaments/{tournamentID}/matches/{matchID} [patch]
func (h *MatchHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, ok := matchIDs(w, r)
	if !ok {
		return
	}

	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.UpdateMatch(r.Context(), tournamentID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DisqualifyHandler godoc
// @Summary      Disqualify a participant from a match
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        tournamentID  path      string             true  "Tournament ID"
// @Param        matchID       path      string             true  "Match ID"
// @Param        input         body      DisqualifyRequest  true  "Participant"
// @Success      200           {object}  map[string][]models.Match
// @Failure      409           {object}  map[string]string
// @Security     BearerAuth
// @Router       /tournaments/{tournamentID}/matches/{matchID}/disqualify [post]
func (h *MatchHandler) DisqualifyHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, matchID, ok := matchIDs(w, r)
	if !ok {
		return
	}

	var input DisqualifyRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ParticipantID == uuid.Nil {
		badRequestResponse(w, r, errors.New("participant_id is required"))
		return
	}

	matches, err := h.matchService.Disqualify(r.Context(), tournamentID, matchID, input.ParticipantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
