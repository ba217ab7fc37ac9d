package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/api"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/config"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/identity"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/maintenance"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/middleware"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/notify"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/realtime"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/state"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/transport"
	"github.com/LogoMakerApp-IA/New-orion-Repository/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Orion server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func machineConfig(cfg *config.Config) state.Config {
	return state.Config{
		Delays: state.Delays{
			Authenticating: cfg.Timing.Authenticating,
			Boot:           cfg.Timing.Boot,
			Searching:      cfg.Timing.Searching,
			AutoRevert:     cfg.Timing.AutoRevert,
			Alert:          cfg.Timing.Alert,
			ResetClear:     cfg.Timing.ResetClear,
			Logout:         cfg.Timing.Logout,
			SleepStage:     cfg.Timing.SleepStage,
			Observe:        cfg.Timing.Observe,
		},
		DeepThreshold: cfg.Timing.DeepThreshold,
		SingleUser:    cfg.SingleUser,
	}
}

//nolint:gocognit // Startup wiring is intentionally sequential to keep dependency setup explicit.
func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "single_user", cfg.SingleUser)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Live session registry.
	hub := realtime.NewHub()

	// Notification spool feeding ambient context and power states.
	watcher, err := notify.NewWatcher(cfg.NotifyDir, notify.Handlers{
		OnPower: hub.BroadcastPower,
	})
	if err != nil {
		return fmt.Errorf("initialize notification watcher: %w", err)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Error("Notification watcher failed", "error", err)
		}
	}()

	gemini := transport.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("Transport initialized", "model", gemini.Model())

	// Guest TTL sweep.
	sweeper := maintenance.NewSweeper(repo, cfg.GuestTTL, hub.CloseUser)
	if err := sweeper.Start(cfg.SweepSpec); err != nil {
		return fmt.Errorf("start guest sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, hub, watcher, cfg.SingleUser, cfg.IsDevelopment())
	wsHandler := realtime.NewWebSocketHandler(
		repo, gemini, hub, machineConfig(cfg), watcher.Unread, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.SingleUser))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", baseHandler.Health)
		r.Post("/auth/login", baseHandler.Login)
		r.Post("/auth/guest", baseHandler.Guest)
		r.Post("/auth/logout", baseHandler.Logout)
		r.Get("/me", baseHandler.Me)
		r.Get("/memory", baseHandler.GetMemory)
		r.Delete("/memory", baseHandler.ClearMemory)
		r.Get("/history", baseHandler.GetHistory)
		r.Delete("/history", baseHandler.ClearHistory)
		r.Get("/notifications", baseHandler.GetNotifications)
		r.Post("/notifications/{id}/read", baseHandler.ReadNotification)
	})

	// WebSocket endpoint.
	r.Get("/ws/session", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived WebSocket connections
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}
