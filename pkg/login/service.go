package login

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mindweek/simple-auth/pkg/telemetry"
	"github.com/mindweek/simple-auth/pkg/tokengenerator"
	"github.com/mindweek/simple-auth/pkg/user"
)

// EventTracker records auth events; *telemetry.Tracker satisfies it
type EventTracker interface {
	TrackEvent(event, method, status string)
}

// noopTracker is used when no tracker is configured
type noopTracker struct{}

func (noopTracker) TrackEvent(event, method, status string) {}

// LoginResult is the outcome of a successful registration or login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      user.User
}

// LoginService implements password registration and login
type LoginService struct {
	repo    user.UserRepository
	hasher  PasswordHasher
	tokens  *tokengenerator.TokenService
	tracker EventTracker
}

// Option is a function that configures a LoginService
type Option func(*LoginService)

// WithPasswordHasher sets the password hasher
func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(s *LoginService) {
		s.hasher = hasher
	}
}

// WithEventTracker sets the auth event tracker
func WithEventTracker(tracker EventTracker) Option {
	return func(s *LoginService) {
		s.tracker = tracker
	}
}

// NewLoginService creates a new login service
func NewLoginService(repo user.UserRepository, tokens *tokengenerator.TokenService, opts ...Option) *LoginService {
	s := &LoginService{
		repo:    repo,
		hasher:  NewBcryptHasher(),
		tokens:  tokens,
		tracker: noopTracker{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register creates a user record and issues a session token. A taken email
// fails with user.ErrUserAlreadyExists; the existing record is left untouched.
func (s *LoginService) Register(ctx context.Context, email, password, name string) (*LoginResult, error) {
	if email == "" || password == "" || name == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventUserRegistration, "password", telemetry.StatusFailure)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, user.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventUserRegistration, "password", telemetry.StatusFailure)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(created.Email, created.Name)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventUserRegistration, "password", telemetry.StatusFailure)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("User registered", "email", created.Email)
	s.tracker.TrackEvent(telemetry.EventUserRegistration, "password", telemetry.StatusSuccess)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: created}, nil
}

// Login verifies credentials and issues a session token. An unknown email and
// a wrong password return the identical ErrInvalidCredentials.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.repo.Get(ctx, email)
	if err != nil {
		slog.Debug("Login attempt for unknown email", "email", email)
		s.tracker.TrackEvent(telemetry.EventUserLogin, "password", telemetry.StatusFailure)
		return nil, ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil || !match {
		slog.Debug("Login attempt with wrong password", "email", email)
		s.tracker.TrackEvent(telemetry.EventUserLogin, "password", telemetry.StatusFailure)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.Email, u.Name)
	if err != nil {
		s.tracker.TrackEvent(telemetry.EventUserLogin, "password", telemetry.StatusFailure)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("User logged in", "email", u.Email)
	s.tracker.TrackEvent(telemetry.EventUserLogin, "password", telemetry.StatusSuccess)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// GetUser returns the stored record for an authenticated email
func (s *LoginService) GetUser(ctx context.Context, email string) (user.User, error) {
	return s.repo.Get(ctx, email)
}
