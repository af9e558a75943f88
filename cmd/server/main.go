package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thomasemurphy/circle-cal/internal/config"
	"github.com/thomasemurphy/circle-cal/internal/database"
	"github.com/thomasemurphy/circle-cal/internal/handlers"
	"github.com/thomasemurphy/circle-cal/internal/logging"
	"github.com/thomasemurphy/circle-cal/internal/middleware"
	"github.com/thomasemurphy/circle-cal/internal/services"
	"github.com/thomasemurphy/circle-cal/internal/services/identity"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	logging.SetDefaultLevel(logging.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("Starting Circle Calendar server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	emailService := services.NewEmailService(&cfg.Email)
	friendService := services.NewFriendService(dbAdapter, emailService)
	eventService := services.NewEventService(dbAdapter)

	var provider handlers.IdentityProvider
	if cfg.Google.Enabled() {
		provider = identity.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	} else {
		logger.Warn("Google OAuth credentials not configured; login is disabled")
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, provider, cfg.Server.Secure)
	friendHandler := handlers.NewFriendHandler(friendService)
	eventHandler := handlers.NewEventHandler(eventService)
	profileHandler := handlers.NewProfileHandler(userService)
	spaHandler := handlers.NewSPAHandler(cfg.Server.StaticDir)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	// Friend requests fan out email invitations, so they get a per-user cap.
	requestLimit := int64(30)
	if cfg.Server.Environment == "development" {
		requestLimit = 300
	}
	friendRequestLimiter := middleware.NewRateLimiter(redisDB.Client, requestLimit, time.Hour, "ratelimit:friendreq:", func(r *http.Request) string {
		if user := handlers.GetUserFromContext(r.Context()); user != nil {
			return user.ID.String()
		}
		return ""
	})

	requireAuth := authMiddleware.RequireAuth

	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Auth endpoints
	mux.HandleFunc("GET /auth/google", authHandler.Login)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Friend endpoints
	mux.Handle("GET /api/friends", requireAuth(http.HandlerFunc(friendHandler.List)))
	mux.Handle("GET /api/friends/requests/pending", requireAuth(http.HandlerFunc(friendHandler.ListPending)))
	mux.Handle("POST /api/friends/request", requireAuth(friendRequestLimiter.Limit(http.HandlerFunc(friendHandler.SendRequest))))
	mux.Handle("PATCH /api/friends/request/{id}", requireAuth(http.HandlerFunc(friendHandler.Respond)))
	mux.Handle("DELETE /api/friends/{id}", requireAuth(http.HandlerFunc(friendHandler.Remove)))

	// Event endpoints
	mux.Handle("GET /api/events", requireAuth(http.HandlerFunc(eventHandler.List)))
	mux.Handle("POST /api/events", requireAuth(http.HandlerFunc(eventHandler.Create)))
	mux.Handle("PUT /api/events/{id}", requireAuth(http.HandlerFunc(eventHandler.Update)))
	mux.Handle("DELETE /api/events/{id}", requireAuth(http.HandlerFunc(eventHandler.Delete)))

	// Profile endpoint
	mux.Handle("PATCH /api/profile", requireAuth(http.HandlerFunc(profileHandler.Update)))

	// SPA: everything else falls through to static files / index.html
	mux.Handle("GET /", spaHandler)

	// Middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
