// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// Dependency flow:
//
//	config.Config → sqlite.DB → services → handlers → chi router
//
// Each layer only receives what it needs. Services get repository
// interfaces (satisfied by *sqlite.DB); handlers get services.
package server

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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/handler"
	"github.com/sakif/conduit/internal/middleware"
	sqliteRepo "github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/service"
)

// publicPrefixes are reachable without a token: signup, login and the tag
// list. Everything else under /api goes through the auth gate.
var publicPrefixes = []string{"/api/users", "/api/tags"}

// Server owns the router and the database handle. The handle is closed when
// Start returns or when Close is called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, runs migrations and wires every route.
// The token signing key and the connection pool are created here once and
// shared by all requests.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("creating password service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath, sqliteRepo.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		OpTimeout:    cfg.DBAcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, passwords)
	return s, nil
}

// Router exposes the configured router, for tests and route docs.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts middleware and routes.
//
// Middleware order:
//  1. RequestID: every log line and error carries the id
//  2. RealIP
//  3. Logger: one line per request, after the handler finishes
//  4. Recoverer: a panic becomes a 500 and is still logged by Logger
//  5. CORS: answers preflights before the auth gate sees them
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	users := service.NewUserService(s.db, tokens, passwords, s.logger)
	profiles := service.NewProfileService(s.db, s.db, s.logger)
	articles := service.NewArticleService(s.db, s.db, s.logger)
	comments := service.NewCommentService(s.db, s.db, s.db, s.logger)

	userHandler := handler.NewUserHandler(users, s.logger)
	profileHandler := handler.NewProfileHandler(profiles, s.logger)
	articleHandler := handler.NewArticleHandler(articles, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	tagHandler := handler.NewTagHandler(articles, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(auth.Authenticate(tokens, users, s.logger, publicPrefixes...))

		r.Post("/users", userHandler.HandleSignup)
		r.Post("/users/login", userHandler.HandleLogin)

		r.Get("/user", userHandler.HandleCurrent)
		r.Put("/user", userHandler.HandleUpdate)

		r.Route("/profiles/{username}", func(r chi.Router) {
			r.Get("/", profileHandler.HandleGet)
			r.Post("/follow", profileHandler.HandleFollow)
			r.Delete("/follow", profileHandler.HandleUnfollow)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", articleHandler.HandleList)
			r.Post("/", articleHandler.HandleCreate)
			// chi matches the static segment first, so "feed" never reaches {id}.
			r.Get("/feed", articleHandler.HandleFeed)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.HandleGet)
				r.Put("/", articleHandler.HandleUpdate)
				r.Delete("/", articleHandler.HandleDelete)

				r.Post("/favorites", articleHandler.HandleFavorite)
				r.Delete("/favorites", articleHandler.HandleUnfavorite)

				r.Get("/comments", commentHandler.HandleList)
				r.Post("/comments", commentHandler.HandleCreate)
				r.Delete("/comments/{commentID}", commentHandler.HandleDelete)
			})
		})

		r.Get("/tags", tagHandler.HandleList)
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
