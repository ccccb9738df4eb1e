package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
)

// Verifier seeks and verifies a bearer token from the Authorization header,
// storing the result in the request context. Must be followed by
// AuthUserMiddleware (or OptionalAuthUser) which acts on that result.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader)
}

// AuthUserMiddleware rejects requests without a valid bearer token and attaches
// the decoded identity to the request context otherwise.
// Returns 401 when no token was presented or the header is not Bearer-shaped,
// 403 when a token was presented but failed verification.
// Must be used after Verifier.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			slog.Debug("Unauthenticated request to protected resource", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Access denied", "No authorization token provided")
			return
		}

		if token := bearerToken(authHeader); token == "" {
			writeError(w, http.StatusUnauthorized, "Access denied", "Invalid token format. Use: Bearer <token>")
			return
		}

		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			slog.Debug("Token verification failed", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusForbidden, "Invalid token", err.Error())
			return
		}

		authUser, ok := userFromClaims(claims)
		if !ok {
			writeError(w, http.StatusForbidden, "Invalid token", "Token missing identity claims")
			return
		}

		slog.Debug("Authenticated request", "user", authUser)
		ctx := context.WithValue(r.Context(), AuthUserKey, authUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthUser attaches the decoded identity when a valid token is present
// but never blocks the request. Used for routes that behave differently for
// anonymous and authenticated callers. Must be used after Verifier.
func OptionalAuthUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err == nil {
			if authUser, ok := userFromClaims(claims); ok {
				r = r.WithContext(context.WithValue(r.Context(), AuthUserKey, authUser))
			}
		} else if r.Header.Get("Authorization") != "" {
			slog.Debug("Ignoring invalid token on optional-auth route", "path", r.URL.Path, "err", err)
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[0:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func userFromClaims(claims map[string]interface{}) (*AuthUser, bool) {
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if email == "" {
		return nil, false
	}
	return &AuthUser{Email: email, Name: name}, true
}

func writeError(w http.ResponseWriter, status int, errName, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errName,
		"message": message,
	})
}
