package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/tournament-bracket/handlers"
	"github.com/Dosada05/tournament-bracket/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("routes-secret")

func newTestRouter() chi.Router {
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:        handlers.NewAuthHandler(nil),
		Tournament:  handlers.NewTournamentHandler(nil),
		Participant: handlers.NewParticipantHandler(nil),
		Match:       handlers.NewMatchHandler(nil),
		WebSocket:   handlers.NewWebSocketHandler(nil, nil, nil, []string{"*"}, nil),
	}, testSecret, []string{"https://brackets.example.com"})
	return router
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSwaggerDocIsServed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tournaments/{tournamentID}/matches/{matchID}")
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	router := newTestRouter()
	id := "0b6f7c55-8f2a-4a8e-9a57-0d3f1f4c2a10"

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/tournaments"},
		{http.MethodDelete, "/tournaments/" + id},
		{http.MethodPost, "/tournaments/" + id + "/start"},
		{http.MethodPost, "/tournaments/" + id + "/participants"},
		{http.MethodDelete, "/tournaments/" + id + "/participants/" + id},
		{http.MethodPost, "/tournaments/" + id + "/matches/" + id + "/start"},
		{http.MethodPatch, "/tournaments/" + id + "/matches/" + id},
		{http.MethodPost, "/tournaments/" + id + "/matches/" + id + "/disqualify"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthenticatedRequestReachesHandler(t *testing.T) {
	token, _, err := utils.GenerateJWT(testSecret, utils.RoleOrganizer, time.Now(), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/tournaments/not-a-uuid/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, "the handler rejects the id after authentication passed")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/tournaments", nil)
	req.Header.Set("Origin", "https://brackets.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, "https://brackets.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
