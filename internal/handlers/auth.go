package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/keygate/authserver/internal/services"
	"github.com/keygate/authserver/types"
)

// tokenCookieName is the cookie clients may carry instead of an
// Authorization header.
const tokenCookieName = "jwt"

// AuthHandler provides the signup, login, logout, and current-user endpoints.
type AuthHandler struct {
	authService *services.AuthService
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
// tokenTTL controls the max-age of the token cookie and must match the
// codec's token lifetime.
func NewAuthHandler(authService *services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, tokenTTL time.Duration) {
	handler := NewAuthHandler(authService, tokenTTL)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth authenticates the request and injects the resolved user into
// the request context for downstream handlers.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := requestToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.authService.Resolve(r.Context(), tokenString)
		if err != nil {
			if errors.Is(err, services.ErrRepositoryUnavailable) {
				writeError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), &user)))
	})
}

// Signup creates a new user account and returns it with a fresh token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, token, err := h.authService.Signup(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "email already taken")
		case errors.Is(err, services.ErrRepositoryUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Login verifies credentials and returns the user with a fresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, services.ErrRepositoryUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Logout clears the token cookie. Tokens are stateless: nothing is revoked
// server-side, and a previously issued token stays valid until its expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the authenticated user resolved by RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: *user})
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

type MeResponse struct {
	User types.User `json:"user"`
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
	})
}

func (h *AuthHandler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

// requestToken extracts the bearer token from the Authorization header,
// falling back to the jwt cookie.
func requestToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization")
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", errors.New("invalid authorization")
		}
		return token, nil
	}

	cookie, err := r.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("missing token")
	}
	return cookie.Value, nil
}
