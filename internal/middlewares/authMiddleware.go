package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"interiorly/internal/services"
	"interiorly/internal/utils"
)

// Authenticator validates session tokens and stores their claims in the request context.
type Authenticator struct {
	sessions services.SessionService
}

func NewAuthenticator(sessions services.SessionService) *Authenticator {
	return &Authenticator{sessions: sessions}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireUser accepts any valid session presented as a bearer token.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			utils.SendJSONError(w, "Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := a.sessions.Parse(token)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), utils.ClaimsContextKey, claims)))
	})
}

// RequireAdmin accepts admin sessions from the bearer header or the admin cookie.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(utils.AdminCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			utils.SendJSONError(w, "Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := a.sessions.ParseAdmin(token)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), utils.ClaimsContextKey, claims)))
	})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSessionExpired):
		utils.SendJSONError(w, "session expired", http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		utils.SendJSONError(w, "admin access required", http.StatusForbidden)
	case errors.Is(err, services.ErrSigningSecretMissing):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Cannot authenticate request")
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	default:
		utils.SendJSONError(w, "invalid token", http.StatusUnauthorized)
	}
}
