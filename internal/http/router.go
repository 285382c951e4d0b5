package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fraudshield/server/internal/auth"
	"github.com/fraudshield/server/internal/http/handlers"
	"github.com/fraudshield/server/internal/middleware"
	"github.com/fraudshield/server/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *handlers.AuthHandler,
	otpHandler *handlers.OTPHandler,
	tokens *auth.TokenService,
	userRepo repo.UserRepo,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/forgot_password", authHandler.HandleForgotPassword)
		r.Post("/reset_password", authHandler.HandleResetPassword)
	})

	r.Route("/otp", func(r chi.Router) {
		r.Post("/send", otpHandler.HandleSend)
		r.Post("/verify", otpHandler.HandleVerify)
		r.Post("/resend", otpHandler.HandleResend)
		r.Get("/status/{identifier}", otpHandler.HandleStatus)
		r.Post("/cleanup", otpHandler.HandleCleanup)
	})

	// Protected routes (require valid bearer token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens, userRepo))
		r.Get("/me", authHandler.HandleMe)
	})

	return r
}
