package externalauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*testEnv, *chi.Mux) {
	t.Helper()
	env := newTestEnv(t)
	handle := NewHandle(env.service, false)
	r := chi.NewRouter()
	handle.RegisterRoutes(r)
	return env, r
}

func TestInitiateLoginEndpoint(t *testing.T) {
	_, r := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/openid/login", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body LoginURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.AuthURL, "client_id=test-client")
	assert.Contains(t, body.AuthURL, "state=")
	assert.NotEmpty(t, body.Message)
}

func TestCallbackEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env, r := setupHandlerTest(t)
		env.provider.idToken = makeIDToken(t, jwt.MapClaims{
			"sub":   "user-123",
			"email": "cb@example.com",
			"name":  "Callback User",
		})
		env.provider.userinfoFail = true
		state := env.beginFlow(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/openid/callback?code=auth-code&state="+state, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body CallbackResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "OpenID login successful", body.Message)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, "cb@example.com", body.User.Email)
		assert.Equal(t, "provider-access-token", body.OpenID.AccessToken)
		assert.NotEmpty(t, body.OpenID.IDToken)
	})

	t.Run("missing code", func(t *testing.T) {
		_, r := setupHandlerTest(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=whatever", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Authentication failed", body.Error)
		assert.Equal(t, "No authorization code provided", body.Message)
	})

	t.Run("bad state", func(t *testing.T) {
		_, r := setupHandlerTest(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=forged", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid or expired state", body.Message)
	})

	t.Run("exchange failure", func(t *testing.T) {
		env, r := setupHandlerTest(t)
		env.provider.tokenStatus = http.StatusUnauthorized
		state := env.beginFlow(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=bad&state="+state, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Server error", body.Error)
	})
}
