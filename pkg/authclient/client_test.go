package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "User registered successfully",
			"token":   "test-token",
			"user": map[string]any{
				"email":     req["email"],
				"name":      req["name"],
				"createdAt": time.Now().UTC(),
			},
		})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if req["password"] != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "Authentication failed",
				"message": "Invalid email or password",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Login successful",
			"token":   "test-token",
			"user":    map[string]any{"email": req["email"], "name": "Alice"},
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "Access denied",
				"message": "No authorization token provided",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"email": "alice@example.com", "name": "Alice"},
		})
	})
	mux.HandleFunc("GET /auth/openid/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authUrl": "https://provider.example.com/authorize?state=abc",
			"message": "Redirect to this URL to authenticate",
		})
	})
	mux.HandleFunc("GET /auth/openid/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "OpenID login successful",
			"token":   "test-token",
			"user":    map[string]any{"email": "fed@example.com", "name": "Fed"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T) (*Client, *SessionStore) {
	t.Helper()
	server := newTestServer(t)
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	return New(server.URL, store), store
}

func TestRegisterPersistsSession(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	assert.False(t, client.IsAuthenticated())

	session, err := client.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "test-token", session.Token)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.True(t, client.IsAuthenticated())

	// memory and disk stay in lockstep
	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, session.Token, persisted.Token)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	t.Run("success", func(t *testing.T) {
		session, err := client.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "Alice", session.User.Name)
	})

	t.Run("bad credentials surface the server error", func(t *testing.T) {
		client.Logout()

		_, err := client.Login(ctx, "alice@example.com", "wrongpass")
		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusUnauthorized, serverErr.StatusCode)
		assert.Equal(t, "Authentication failed", serverErr.Reason)
		assert.False(t, client.IsAuthenticated())
	})
}

func TestSessionHydration(t *testing.T) {
	server := newTestServer(t)
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewSessionStore(path)

	require.NoError(t, store.Save(&Session{
		Token: "test-token",
		User:  UserInfo{Email: "alice@example.com", Name: "Alice"},
	}))

	// a new process picks the session up from disk
	client := New(server.URL, store)
	require.True(t, client.IsAuthenticated())

	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestMeRequiresLogin(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Me(context.Background())
	assert.Error(t, err)
}

func TestLoginWithOpenID(t *testing.T) {
	ctx := context.Background()

	t.Run("is single-shot until completed", func(t *testing.T) {
		client, _ := newTestClient(t)

		authURL, err := client.LoginWithOpenID(ctx)
		require.NoError(t, err)
		assert.Contains(t, authURL, "https://provider.example.com/authorize")

		// a rapid second invocation must not issue another redirect
		_, err = client.LoginWithOpenID(ctx)
		assert.Error(t, err)

		session, err := client.CompleteOpenIDLogin(ctx, "auth-code", "abc")
		require.NoError(t, err)
		assert.Equal(t, "fed@example.com", session.User.Email)

		// the guard resets after completion
		_, err = client.LoginWithOpenID(ctx)
		assert.NoError(t, err)
	})

	t.Run("logout resets the guard", func(t *testing.T) {
		client, _ := newTestClient(t)

		_, err := client.LoginWithOpenID(ctx)
		require.NoError(t, err)

		client.Logout()

		_, err = client.LoginWithOpenID(ctx)
		assert.NoError(t, err)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	_, err := client.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	client.Logout()
	assert.False(t, client.IsAuthenticated())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)

	// logging out twice is fine
	client.Logout()
}

func TestSessionStoreCorruptFile(t *testing.T) {
	server := newTestServer(t)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	client := New(server.URL, NewSessionStore(path))
	assert.False(t, client.IsAuthenticated())
}
