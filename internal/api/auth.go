package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kalambet/agente/internal/auth"
	"github.com/kalambet/agente/internal/store"
)

type contextKey int

const userIDKey contextKey = iota

// CurrentUser returns the authenticated user ID stored by JWTAuth.
func CurrentUser(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// JWTAuth validates the bearer token and stashes its subject in the
// request context.
func JWTAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			subject, err := tokens.Decode(header[len(prefix):])
			if err != nil {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Username == "" || req.Password == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "username and password are required")
			return
		}

		ok, err := deps.Auth.Authenticate(req.Username, req.Password)
		if errors.Is(err, auth.ErrUserNotFound) || (err == nil && !ok) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid credentials")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "authentication failed: %v", err)
			return
		}

		// First login provisions the user record.
		if _, found := deps.Store.GetUser(req.Username); !found {
			deps.Store.AddUser(store.User{ID: req.Username, Username: req.Username})
		}

		token, err := deps.Tokens.Issue(req.Username)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to issue token: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
	}
}
