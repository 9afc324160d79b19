package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/tournament-bracket/utils"
)

type contextKey string

const organizerContextKey contextKey = "organizer"

// Authenticate rejects requests without a valid organizer bearer token and
// stores the token claims in the request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "authorization header must be of the form 'Bearer <token>'")
				return
			}

			claims, err := utils.ParseJWT(secret, tokenString)
			if err != nil {
				slog.DebugContext(r.Context(), "rejected organizer token", "error", err, "path", r.URL.Path)
				unauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), organizerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the organizer claims stored by Authenticate.
func GetClaims(ctx context.Context) (*utils.OrganizerClaims, bool) {
	claims, ok := ctx.Value(organizerContextKey).(*utils.OrganizerClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
