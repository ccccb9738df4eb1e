package externalauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/mindweek/simple-auth/pkg/telemetry"
	"github.com/mindweek/simple-auth/pkg/tokengenerator"
	"github.com/mindweek/simple-auth/pkg/user"
)

const (
	// DefaultStateExpiration is how long an authorization state token stays valid
	DefaultStateExpiration = 10 * time.Minute

	// DefaultHTTPTimeout bounds requests to the provider's token and userinfo endpoints
	DefaultHTTPTimeout = 30 * time.Second
)

// EventTracker records authentication events for monitoring
type EventTracker interface {
	TrackEvent(event, method, status string)
}

type noopTracker struct{}

func (noopTracker) TrackEvent(_, _, _ string) {}

// Service drives the OpenID Connect authorization code flow against a single
// configured provider and converts federated identities into local users.
type Service struct {
	provider        *Provider
	users           user.UserRepository
	tokens          *tokengenerator.TokenService
	states          StateRepository
	httpClient      *http.Client
	stateExpiration time.Duration
	tracker         EventTracker
	jwksCache       *jwk.Cache
}

// Option configures the external auth service
type Option func(*Service)

// WithHTTPClient overrides the HTTP client used for provider requests
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithStateExpiration overrides how long authorization states remain valid
func WithStateExpiration(d time.Duration) Option {
	return func(s *Service) {
		s.stateExpiration = d
	}
}

// WithEventTracker records login events on the given tracker
func WithEventTracker(tracker EventTracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// NewService creates an external auth service for the given provider.
func NewService(ctx context.Context, provider *Provider, users user.UserRepository, tokens *tokengenerator.TokenService, states StateRepository, opts ...Option) (*Service, error) {
	if err := provider.ValidateConfig(); err != nil {
		return nil, err
	}

	s := &Service{
		provider:        provider,
		users:           users,
		tokens:          tokens,
		states:          states,
		httpClient:      &http.Client{Timeout: DefaultHTTPTimeout},
		stateExpiration: DefaultStateExpiration,
		tracker:         noopTracker{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if provider.JWKSURL != "" {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(provider.JWKSURL); err != nil {
			return nil, fmt.Errorf("failed to register provider JWKS URL: %w", err)
		}
		s.jwksCache = cache
	}

	return s, nil
}

// FlowResult is the outcome of initiating an authorization flow
type FlowResult struct {
	AuthURL string
	State   string
}

// CallbackResult is the outcome of a completed authorization code exchange
type CallbackResult struct {
	Token       string
	ExpiresAt   time.Time
	User        user.User
	AccessToken string
	IDToken     string
}

// InitiateFlow generates a single-use state token, stores it, and returns the
// provider authorization URL the user should be redirected to.
func (s *Service) InitiateFlow(ctx context.Context) (*FlowResult, error) {
	state, err := generateSecureState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	err = s.states.StoreState(ctx, &OAuth2State{
		State:     state,
		ExpiresAt: time.Now().Add(s.stateExpiration),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store state: %w", err)
	}

	authURL, err := s.provider.BuildAuthURL(state)
	if err != nil {
		return nil, err
	}

	return &FlowResult{
		AuthURL: authURL,
		State:   state,
	}, nil
}

// HandleCallback completes the authorization code flow: it validates the
// state, exchanges the code for provider tokens, resolves the federated
// identity, upserts the local user record and issues a session token.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	if _, err := s.states.ConsumeState(ctx, state); err != nil {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	tokenResp, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, err
	}

	claims, err := s.parseIDToken(ctx, tokenResp.IDToken)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, err
	}

	identity := s.resolveIdentity(ctx, tokenResp.AccessToken, claims)
	if identity.Email == "" {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, fmt.Errorf("%w: no email claim available for subject %s", ErrInvalidIDToken, claims.Subject)
	}
	if identity.Name == "" {
		identity.Name = identity.Email
	}

	stored, err := s.users.Upsert(ctx, user.User{
		Email:     identity.Email,
		Name:      identity.Name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, fmt.Errorf("failed to store federated user: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(stored.Email, stored.Name)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusFailure)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.tracker.TrackEvent(telemetry.EventOpenIDLogin, s.provider.Name, telemetry.StatusSuccess)
	slog.Info("Federated login completed", "provider", s.provider.Name, "email", stored.Email)

	return &CallbackResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		User:        stored,
		AccessToken: tokenResp.AccessToken,
		IDToken:     tokenResp.IDToken,
	}, nil
}

// identity is the resolved local identity for a federated login
type identity struct {
	Email string
	Name  string
}

// resolveIdentity prefers the provider's userinfo endpoint and falls back to
// the ID token claims when the endpoint is unavailable or fails.
func (s *Service) resolveIdentity(ctx context.Context, accessToken string, claims *IDTokenClaims) identity {
	id := identity{
		Email: claims.Email,
		Name:  claims.Name,
	}
	if id.Name == "" {
		id.Name = claims.PreferredUsername
	}

	if s.provider.UserInfoURL == "" {
		return id
	}

	info, err := s.fetchUserInfo(ctx, accessToken)
	if err != nil {
		slog.Warn("Userinfo request failed, falling back to ID token claims",
			"provider", s.provider.Name, "error", err)
		return id
	}

	if info.Email != "" {
		id.Email = info.Email
	}
	if info.Name != "" {
		id.Name = info.Name
	} else if info.PreferredUsername != "" && id.Name == "" {
		id.Name = info.PreferredUsername
	}
	return id
}

// userInfoResponse is the subset of the userinfo response we consume
type userInfoResponse struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

func (s *Service) fetchUserInfo(ctx context.Context, accessToken string) (*userInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.provider.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &info, nil
}

// exchangeCodeForToken exchanges the authorization code for provider tokens.
func (s *Service) exchangeCodeForToken(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.provider.RedirectURI)
	data.Set("client_id", s.provider.ClientID)
	data.Set("client_secret", s.provider.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Message: "failed to create token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Message: "failed to read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Message: "failed to decode token response", Err: err}
	}
	if tokenResp.AccessToken == "" {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Message: "token response missing access_token"}
	}
	return &tokenResp, nil
}

// generateSecureState produces a cryptographically random state token
func generateSecureState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
