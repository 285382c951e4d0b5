package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fraudshield/server/internal/auth"
	"github.com/fraudshield/server/internal/middleware"
	"github.com/fraudshield/server/internal/model"
)

// AuthHandler handles signup, login and the password-reset endpoints
type AuthHandler struct {
	authService  *auth.AuthService
	loginLimiter *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	// Per-IP limit on credential guessing: 20 login attempts per 10 minutes
	return &AuthHandler{
		authService:  authService,
		loginLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// userResponse is the public user object in API responses
type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Verified:  u.Verified,
	}
}

// signupRequest is the request body for POST /auth/signup
type signupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// sessionResponse is returned by signup and login
type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// HandleSignup handles POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.FirstName == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "first_name, email and password are required", CodeInvalidRequest)
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters", CodeInvalidRequest)
		return
	}

	user, token, err := h.authService.Signup(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			respondError(w, http.StatusBadRequest, "an account with this email already exists", CodeDuplicateIdentity)
			return
		}
		logMasked(req.Email, "signup failed", err)
		respondError(w, http.StatusInternalServerError, "failed to create account", CodeInternal)
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, User: toUserResponse(user)})
}

// loginRequest is the request body for POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required", CodeInvalidRequest)
		return
	}

	if !h.loginLimiter.Allow(middleware.GetIPKey(r)) {
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// Unknown user and wrong password look identical on the wire.
			respondError(w, http.StatusUnauthorized, "invalid email or password", CodeInvalidCredentials)
			return
		}
		logMasked(req.Email, "login failed", err)
		respondError(w, http.StatusInternalServerError, "login failed", CodeInternal)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserResponse(user)})
}

// forgotPasswordRequest is the request body for POST /auth/forgot_password
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPasswordResponse returns the reset token directly; a production
// deployment delivers it out-of-band instead.
type forgotPasswordResponse struct {
	ResetToken string `json:"reset_token"`
	ExpiresIn  int    `json:"expires_in"`
}

// HandleForgotPassword handles POST /auth/forgot_password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required", CodeInvalidRequest)
		return
	}

	token, ttl, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "no account with this email", CodeNoSuchIdentity)
			return
		}
		logMasked(req.Email, "forgot password failed", err)
		respondError(w, http.StatusInternalServerError, "failed to issue reset token", CodeInternal)
		return
	}

	respondJSON(w, http.StatusOK, forgotPasswordResponse{
		ResetToken: token,
		ExpiresIn:  int(ttl.Seconds()),
	})
}

// resetPasswordRequest is the request body for POST /auth/reset_password
type resetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword handles POST /auth/reset_password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.ResetToken = strings.TrimSpace(req.ResetToken)
	if req.ResetToken == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "reset_token and new_password are required", CodeInvalidRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters", CodeInvalidRequest)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			respondError(w, http.StatusBadRequest, "invalid or expired reset token", CodeInvalidResetToken)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to reset password", CodeInternal)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe handles GET /me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(*user))
}
