package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/fraudshield/server/internal/auth"
	"github.com/fraudshield/server/internal/config"
	"github.com/fraudshield/server/internal/db"
	"github.com/fraudshield/server/internal/delivery"
	httphandler "github.com/fraudshield/server/internal/http"
	"github.com/fraudshield/server/internal/http/handlers"
	"github.com/fraudshield/server/internal/otp"
	"github.com/fraudshield/server/internal/repo"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// OTP store: process-local memory by default, Redis when configured
	// (required once the service runs as more than one instance).
	otpStore, err := newOTPStore(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to initialize OTP store: %v", err)
	}

	userRepo := repo.NewUserRepo(database)

	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL, cfg.ResetTTL)
	authService := auth.NewAuthService(userRepo, tokenService)
	ledger := otp.NewLedger(otpStore)

	senders := map[string]delivery.Sender{
		otp.ChannelSMS:   delivery.NewSMSSender(),
		otp.ChannelEmail: delivery.NewEmailSender(),
	}

	authHandler := handlers.NewAuthHandler(authService)
	otpHandler := handlers.NewOTPHandler(ledger, senders, cfg.DevMode)

	router := httphandler.NewRouter(authHandler, otpHandler, tokenService, userRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newOTPStore selects the ledger backend from configuration
func newOTPStore(ctx context.Context, redisURL string) (otp.Store, error) {
	if redisURL == "" {
		log.Println("OTP store: in-memory (single instance)")
		return otp.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Println("OTP store: redis")
	return otp.NewRedisStore(client), nil
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
