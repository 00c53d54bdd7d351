package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/messagely/messagely-go/internal/config"
	"github.com/messagely/messagely-go/internal/handler"
	"github.com/messagely/messagely-go/internal/middleware"
	"github.com/messagely/messagely-go/internal/repository"
	"github.com/messagely/messagely-go/internal/service"
	"github.com/messagely/messagely-go/internal/sms"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	var sender sms.Sender
	if cfg.SMSAccountSID != "" && cfg.SMSAuthToken != "" && cfg.SMSFromNumber != "" {
		sender = sms.NewTwilioClient(cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber)
	} else {
		slog.Warn("SMS credentials not configured — logging messages instead of sending")
		sender = sms.NewLogSender()
	}

	userRepo := repository.NewUserRepository(db)
	resetRepo := repository.NewResetCodeRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost)
	resetService := service.NewResetService(userRepo, resetRepo, sender, cfg.ResetCodeTTL, cfg.BcryptCost)
	messageService := service.NewMessageService(messageRepo, userRepo, sender)

	authHandler := handler.NewAuthHandler(authService)
	resetHandler := handler.NewResetHandler(resetService)
	userHandler := handler.NewUserHandler(authService)
	messageHandler := handler.NewMessageHandler(messageService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/api/v1/auth/register", authHandler.HandleRegister)
	r.Post("/api/v1/auth/login", authHandler.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))

		r.Get("/api/v1/auth/me", authHandler.HandleMe)
		r.Post("/api/v1/auth/reset/request", resetHandler.HandleRequestReset)
		r.Post("/api/v1/auth/reset/confirm", resetHandler.HandleConfirmReset)

		r.Get("/api/v1/users", userHandler.HandleList)
		r.Get("/api/v1/users/{username}", userHandler.HandleGet)

		r.Post("/api/v1/messages", messageHandler.HandleSend)
		r.Get("/api/v1/messages/inbox", messageHandler.HandleInbox)
		r.Get("/api/v1/messages/outbox", messageHandler.HandleOutbox)
		r.Get("/api/v1/messages/{id}", messageHandler.HandleGet)
		r.Post("/api/v1/messages/{id}/read", messageHandler.HandleMarkRead)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
