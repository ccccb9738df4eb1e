package externalauth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Handle handles HTTP requests for the OpenID Connect flow
type Handle struct {
	service *Service
	devMode bool
}

// NewHandle creates a new external auth handler
func NewHandle(service *Service, devMode bool) *Handle {
	return &Handle{
		service: service,
		devMode: devMode,
	}
}

// RegisterRoutes registers the OpenID flow routes. The callback is exposed on
// two paths since providers are commonly registered with either redirect URI.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Get("/auth/openid/login", h.InitiateLogin)
	r.Get("/auth/openid/callback", h.Callback)
	r.Get("/auth/callback", h.Callback)
}

// ErrorResponse is the error body shape shared by all auth endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LoginURLResponse is the body for the flow initiation endpoint
type LoginURLResponse struct {
	AuthURL string `json:"authUrl"`
	Message string `json:"message"`
}

// CallbackUserResponse is the user shape returned after a federated login
type CallbackUserResponse struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenIDTokens carries the raw provider tokens alongside the session token
type OpenIDTokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
}

// CallbackResponse is the success body for the callback endpoint
type CallbackResponse struct {
	Message string               `json:"message"`
	Token   string               `json:"token"`
	User    CallbackUserResponse `json:"user"`
	OpenID  OpenIDTokens         `json:"openid"`
}

// InitiateLogin handles GET /auth/openid/login
func (h *Handle) InitiateLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.InitiateFlow(r.Context())
	if err != nil {
		slog.Error("Failed to initiate OpenID flow", "err", err)
		h.serverError(w, r, err, "An error occurred starting the login flow")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginURLResponse{
		AuthURL: result.AuthURL,
		Message: "Redirect to this URL to authenticate",
	})
}

// Callback handles the provider redirect with the authorization code
func (h *Handle) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result, err := h.service.HandleCallback(r.Context(), code, state)
	if err != nil {
		h.callbackError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, CallbackResponse{
		Message: "OpenID login successful",
		Token:   result.Token,
		User: CallbackUserResponse{
			Email:     result.User.Email,
			Name:      result.User.Name,
			CreatedAt: result.User.CreatedAt,
		},
		OpenID: OpenIDTokens{
			AccessToken: result.AccessToken,
			IDToken:     result.IDToken,
		},
	})
}

func (h *Handle) callbackError(w http.ResponseWriter, r *http.Request, err error) {
	var exchangeErr *TokenExchangeError

	switch {
	case errors.Is(err, ErrMissingCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Authentication failed", Message: "No authorization code provided"})
	case errors.Is(err, ErrInvalidState):
		slog.Warn("OpenID callback with invalid state", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Authentication failed", Message: "Invalid or expired state"})
	case errors.As(err, &exchangeErr):
		slog.Error("Token exchange failed", "err", err)
		h.serverError(w, r, err, "Failed to exchange authorization code")
	case errors.Is(err, ErrInvalidIDToken):
		slog.Error("Identity token rejected", "err", err)
		h.serverError(w, r, err, "Failed to process identity token")
	default:
		slog.Error("OpenID callback error", "err", err)
		h.serverError(w, r, err, "An error occurred during authentication")
	}
}

func (h *Handle) serverError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	message := fallback
	if h.devMode {
		message = err.Error()
	}
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{Error: "Server error", Message: message})
}
