// Package main runs the authentication service with in-memory storage.
// All data is lost when the server stops.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/cors"

	"github.com/mindweek/simple-auth/pkg/client"
	"github.com/mindweek/simple-auth/pkg/externalauth"
	"github.com/mindweek/simple-auth/pkg/health"
	"github.com/mindweek/simple-auth/pkg/login"
	"github.com/mindweek/simple-auth/pkg/ratelimit"
	"github.com/mindweek/simple-auth/pkg/telemetry"
	"github.com/mindweek/simple-auth/pkg/tokengenerator"
	"github.com/mindweek/simple-auth/pkg/user"
)

// insecureDefaultSecret is the development fallback signing secret. Any real
// deployment must set JWT_SECRET.
const insecureDefaultSecret = "dev-secret-change-in-production"

type Config struct {
	// Application
	Port        int    `env:"PORT" env-default:"4000"`
	Environment string `env:"APP_ENV" env-default:"development"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`

	// JWT
	JWTSecret   string `env:"JWT_SECRET" env-default:""`
	JWTIssuer   string `env:"JWT_ISSUER" env-default:"simple-auth"`
	TokenExpiry string `env:"TOKEN_EXPIRY" env-default:"24h"`

	// OpenID provider
	OpenIDProviderName string `env:"OPENID_PROVIDER_NAME" env-default:"openid"`
	OpenIDIssuer       string `env:"OPENID_ISSUER" env-default:""`
	OpenIDAuthURL      string `env:"OPENID_AUTH_URL" env-default:""`
	OpenIDTokenURL     string `env:"OPENID_TOKEN_URL" env-default:""`
	OpenIDUserInfoURL  string `env:"OPENID_USERINFO_URL" env-default:""`
	OpenIDJWKSURL      string `env:"OPENID_JWKS_URL" env-default:""`
	OpenIDClientID     string `env:"OPENID_CLIENT_ID" env-default:""`
	OpenIDClientSecret string `env:"OPENID_CLIENT_SECRET" env-default:""`
	OpenIDRedirectURI  string `env:"OPENID_REDIRECT_URI" env-default:"http://localhost:3000/auth/callback"`

	// Rate limiting for auth endpoints
	RateLimitEnabled  bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RateLimitCapacity int     `env:"RATE_LIMIT_CAPACITY" env-default:"10"`
	RateLimitPerSec   float64 `env:"RATE_LIMIT_REFILL_PER_SEC" env-default:"0.167"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" env-default:"true"`

	// Development seed user
	SeedUserEmail    string `env:"SEED_USER_EMAIL" env-default:""`
	SeedUserPassword string `env:"SEED_USER_PASSWORD" env-default:""`
	SeedUserName     string `env:"SEED_USER_NAME" env-default:"Dev User"`
}

func (c *Config) devMode() bool {
	return c.Environment != "production"
}

func (c *Config) openIDConfigured() bool {
	return c.OpenIDClientID != "" && c.OpenIDAuthURL != "" && c.OpenIDTokenURL != ""
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting Simple Auth Service")
	slog.Info(strings.Repeat("=", 60))

	loadEnvFile()

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	if config.JWTSecret == "" {
		config.JWTSecret = insecureDefaultSecret
		slog.Warn("JWT_SECRET not set, using insecure development default - set JWT_SECRET in production")
	}

	tokenExpiry, err := time.ParseDuration(config.TokenExpiry)
	if err != nil {
		slog.Error("Invalid TOKEN_EXPIRY", "value", config.TokenExpiry, "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := user.NewInMemoryUserRepository()
	stateRepo := externalauth.NewInMemoryStateRepository()

	// Telemetry
	var tracker *telemetry.Tracker
	if config.MetricsEnabled {
		tracker = telemetry.NewTracker()
	}

	// Services
	tokenService := tokengenerator.NewTokenService(
		tokengenerator.NewJwtTokenGenerator(config.JWTSecret, config.JWTIssuer, config.JWTIssuer),
		tokengenerator.WithTokenExpiry(tokenExpiry),
	)

	loginOpts := []login.Option{}
	if tracker != nil {
		loginOpts = append(loginOpts, login.WithEventTracker(tracker))
	}
	loginService := login.NewLoginService(userRepo, tokenService, loginOpts...)

	var externalAuthService *externalauth.Service
	if config.openIDConfigured() {
		provider := &externalauth.Provider{
			Name:         config.OpenIDProviderName,
			Issuer:       config.OpenIDIssuer,
			AuthURL:      config.OpenIDAuthURL,
			TokenURL:     config.OpenIDTokenURL,
			UserInfoURL:  config.OpenIDUserInfoURL,
			JWKSURL:      config.OpenIDJWKSURL,
			ClientID:     config.OpenIDClientID,
			ClientSecret: config.OpenIDClientSecret,
			RedirectURI:  config.OpenIDRedirectURI,
		}

		externalOpts := []externalauth.Option{}
		if tracker != nil {
			externalOpts = append(externalOpts, externalauth.WithEventTracker(tracker))
		}
		externalAuthService, err = externalauth.NewService(context.Background(),
			provider, userRepo, tokenService, stateRepo, externalOpts...)
		if err != nil {
			slog.Error("Invalid OpenID provider configuration", "error", err)
			os.Exit(1)
		}
		slog.Info("OpenID provider configured", "provider", config.OpenIDProviderName)
	} else {
		slog.Info("OpenID provider not configured, federation routes disabled")
	}

	seedDevUser(&config, loginService)

	server := app.NewApp(
		app.WithPort(config.Port),
		app.WithCORS(&cors.Options{
			AllowedOrigins:   []string{config.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	setupRoutes(server.R, &config, loginService, externalAuthService, tracker)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("Simple Auth Service Ready")
	slog.Info("Environment: " + config.Environment)
	slog.Info("")
	slog.Info("API Endpoints:")
	slog.Info("  POST /auth/register        - Register")
	slog.Info("  POST /auth/login           - Login")
	slog.Info("  GET  /auth/me              - Current user (auth required)")
	slog.Info("  GET  /auth/openid/login    - Start OpenID flow")
	slog.Info("  GET  /api/protected        - Protected echo (auth required)")
	slog.Info("  GET  /health               - Health check")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func setupRoutes(r *chi.Mux, config *Config, loginService *login.LoginService, externalAuthService *externalauth.Service, tracker *telemetry.Tracker) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if tracker != nil {
		r.Use(tracker.Middleware)
	}

	app.RegisterHealthzRoutes(r)

	healthHandle := health.NewHandle(config.Environment, tracker != nil)
	r.Get("/health", healthHandle.Health)

	if tracker != nil {
		r.Method(http.MethodGet, "/metrics", tracker.Handler())
	}

	ja := jwtauth.New("HS256", []byte(config.JWTSecret), nil)
	loginHandle := login.NewHandle(loginService, config.devMode())

	// Public routes that greet anonymous and authenticated callers differently
	r.Group(func(r chi.Router) {
		r.Use(client.Verifier(ja))
		r.Use(client.OptionalAuthUser)

		r.Get("/", welcome)
		r.Get("/api", apiInfo)
		r.Get("/api/hello/{name}", hello)
	})

	// Auth endpoints, rate limited per client
	r.Group(func(r chi.Router) {
		if config.RateLimitEnabled {
			limiter := ratelimit.NewMiddleware(&ratelimit.Config{
				Capacity:   config.RateLimitCapacity,
				RefillRate: config.RateLimitPerSec,
				BucketTTL:  time.Hour,
			})
			r.Use(limiter.Handler)
		}

		loginHandle.RegisterRoutes(r)
		if externalAuthService != nil {
			externalHandle := externalauth.NewHandle(externalAuthService, config.devMode())
			externalHandle.RegisterRoutes(r)
		}
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(client.Verifier(ja))
		r.Use(client.AuthUserMiddleware)

		loginHandle.RegisterProtectedRoutes(r)
		r.Get("/api/protected", protectedEcho)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error":   "Not found",
			"message": "The requested resource does not exist",
		})
	})
}

func welcome(w http.ResponseWriter, r *http.Request) {
	message := "Welcome to Simple Auth"
	if authUser, ok := client.GetAuthUser(r); ok {
		message = "Welcome back, " + authUser.Name
	}
	render.JSON(w, r, map[string]string{"message": message})
}

func apiInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"name":    "simple-auth",
		"message": "Authentication API",
		"endpoints": []string{
			"POST /auth/register",
			"POST /auth/login",
			"GET /auth/me",
			"GET /auth/openid/login",
			"GET /api/protected",
			"GET /health",
		},
	})
}

func hello(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	render.JSON(w, r, map[string]string{
		"message": "Hello, " + name + "!",
	})
}

func protectedEcho(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{
			"error":   "Not authenticated",
			"message": "User information not available",
		})
		return
	}

	render.JSON(w, r, map[string]any{
		"message":   "This is a protected route",
		"user":      authUser,
		"timestamp": time.Now().UTC(),
	})
}

// seedDevUser registers a development user when configured, so a fresh
// in-memory store is immediately usable.
func seedDevUser(config *Config, loginService *login.LoginService) {
	if config.SeedUserEmail == "" || config.SeedUserPassword == "" {
		return
	}
	if !config.devMode() {
		slog.Warn("Ignoring seed user in production")
		return
	}

	_, err := loginService.Register(context.Background(),
		config.SeedUserEmail, config.SeedUserPassword, config.SeedUserName)
	if err != nil {
		slog.Error("Failed to seed development user", "email", config.SeedUserEmail, "error", err)
		return
	}
	slog.Info("Seeded development user", "email", config.SeedUserEmail)
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	execDir := filepath.Dir(execPath)
	envFile := filepath.Join(execDir, ".env")

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
