package login

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mindweek/simple-auth/pkg/client"
	"github.com/mindweek/simple-auth/pkg/user"
)

// Handle handles HTTP requests for password authentication
type Handle struct {
	loginService *LoginService
	devMode      bool
}

// NewHandle creates a new login handler. In dev mode server errors carry the
// underlying message; in production they are generic.
func NewHandle(loginService *LoginService, devMode bool) *Handle {
	return &Handle{
		loginService: loginService,
		devMode:      devMode,
	}
}

// RegisterRoutes registers the public password auth routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers routes that require an authenticated user
func (h *Handle) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

// ErrorResponse is the error body shape shared by all auth endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UserResponse is the user shape returned by auth endpoints
type UserResponse struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

// AuthResponse is the success body for register and login
type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	data := registerRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Validation failed", Message: "Unable to parse request body"})
		return
	}

	result, err := h.loginService.Register(r.Context(), data.Email, data.Password, data.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Validation failed", Message: "Email, password, and name are required"})
		case errors.As(err, &user.ErrUserAlreadyExists{}):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Registration failed", Message: "User with this email already exists"})
		default:
			slog.Error("Registration error", "err", err)
			h.serverError(w, r, err, "An error occurred during registration")
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, AuthResponse{
		Message: "User registered successfully",
		Token:   result.Token,
		User:    toUserResponse(result.User),
	})
}

// Login handles POST /auth/login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	data := loginRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Validation failed", Message: "Unable to parse request body"})
		return
	}

	result, err := h.loginService.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Validation failed", Message: "Email and password are required"})
		case errors.Is(err, ErrInvalidCredentials):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Authentication failed", Message: "Invalid email or password"})
		default:
			slog.Error("Login error", "err", err)
			h.serverError(w, r, err, "An error occurred during login")
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, AuthResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    toUserResponse(result.User),
	})
}

// Me handles GET /auth/me
func (h *Handle) Me(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Not authenticated", Message: "User information not available"})
		return
	}

	u, err := h.loginService.GetUser(r.Context(), authUser.Email)
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "User not found", Message: "User does not exist"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, struct {
		User UserResponse `json:"user"`
	}{User: toUserResponse(u)})
}

func (h *Handle) serverError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	message := fallback
	if h.devMode {
		message = err.Error()
	}
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{Error: "Server error", Message: message})
}
