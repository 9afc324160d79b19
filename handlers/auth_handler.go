package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-bracket/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type TokenRequest struct {
	Password string `json:"password"`
}

// TokenHandler godoc
// @Summary      Issue an organizer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input  body      TokenRequest  true  "Organizer password"
// @Success      200    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]string
// @Router       /auth/token [post]
func (h *AuthHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var input TokenRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	token, expiresAt, err := h.authService.IssueToken(r.Context(), input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
