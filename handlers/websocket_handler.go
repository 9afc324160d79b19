package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
	matchService      services.MatchService
	upgrader          websocket.Upgrader
	logger            *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins only; "*" allows any origin.
func NewWebSocketHandler(
	hub *brackets.Hub,
	ts services.TournamentService,
	ms services.MatchService,
	allowedOrigins []string,
	logger *slog.Logger,
) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: ts,
		matchService:      ms,
		logger:            logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs godoc
// @Summary      Live bracket events
// @Description  Upgrades to a websocket that first receives the current bracket, then BRACKET_UPDATED, MATCH_UPDATED and TOURNAMENT_UPDATED events.
// @Tags         matches
// @Param        tournamentID  path  string  true  "Tournament ID"
// @Success      101
// @Failure      404  {object}  map[string]string
// @Router       /ws/tournaments/{tournamentID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	matches, err := h.matchService.ListMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	room := brackets.RoomForTournament(tournamentID)
	snapshot, err := json.Marshal(brackets.WebSocketMessage{
		Type:    brackets.EventBracketUpdated,
		Payload: jsonResponse{"tournament": tournament, "matches": matches},
		RoomID:  room,
	})
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", "tournament_id", tournamentID, "error", err)
		return
	}

	client := brackets.NewClient(h.hub, conn, room)
	client.Send <- snapshot
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
	h.logger.Debug("websocket client connected", "tournament_id", tournamentID)
}
