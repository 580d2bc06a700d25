// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides which URL maps to which
// handler, which middleware runs on which routes, and how the process starts
// and stops.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads *config.Config and builds the logger, then calls New, which
// assembles everything else in one place (the "composition root"):
//
//	sqlite.DB ─┬─ repositories ── services ── handlers ── routes
//	           └─ auth.Gate (token → user) ── auth middlewares
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, nobody reaches for a global.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/config"
	"github.com/sakif/fragmenthub/internal/handler"
	"github.com/sakif/fragmenthub/internal/middleware"
	sqliteRepo "github.com/sakif/fragmenthub/internal/repository/sqlite"
	"github.com/sakif/fragmenthub/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with the
// modernc.org/sqlite driver.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests that drive it through
// httptest without opening a port.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on its way out; callers that
// never Start (tests) call it themselves.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE ({prefix} is API_PREFIX, /api/v1 by default):
//
//	GET    /                           welcome message
//	GET    /healthz                    database ping
//	GET    /metrics                    Prometheus
//	POST   {prefix}/auth/login         form or JSON → bearer token
//	POST   {prefix}/users              register
//	GET    {prefix}/users/me           auth
//	PUT    {prefix}/users/me           auth
//	GET    {prefix}/users/{id}
//	DELETE {prefix}/users/{id}         admin
//	GET    {prefix}/fragments          optional auth
//	POST   {prefix}/fragments          auth
//	GET    {prefix}/fragments/{id}     optional auth, records a view
//	PUT    {prefix}/fragments/{id}     author or admin
//	DELETE {prefix}/fragments/{id}     author or admin
//	POST   {prefix}/likes/{fragment_id}   auth
//	DELETE {prefix}/likes/{fragment_id}   auth
//	GET    {prefix}/tags
//	POST   {prefix}/tags               admin
//	DELETE {prefix}/tags/{id}          admin
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger sees the ID and the client's
// real address. Logger and Metrics wrap Recoverer, so a panic shows up in both
// as the 500 that Recoverer writes.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)
	paging := service.NewPaging(s.config.DefaultPageSize, s.config.MaxPageSize)

	// === Services ===
	users := s.db.Users()
	tags := s.db.Tags()
	fragments := s.db.Fragments()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	userService := service.NewUserService(users, passwords, s.logger)
	fragmentService := service.NewFragmentService(fragments, s.db.Views(),
		service.NewAssembler(users, tags), paging, s.logger)
	likeService := service.NewLikeService(fragments, s.db.Likes(), s.logger)
	tagService := service.NewTagService(tags, paging, s.logger)

	// === Handlers ===
	metaHandler := handler.NewMetaHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	fragmentHandler := handler.NewFragmentHandler(fragmentService, s.logger)
	likeHandler := handler.NewLikeHandler(likeService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)

	// === Auth middlewares ===
	gate := auth.NewGate(tokens, users)
	optionalAuth := auth.OptionalAuth(gate, s.logger)
	requireAuth := auth.RequireAuth(gate, s.logger)
	requireAdmin := auth.RequireAdmin(s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(metaHandler.HandleNotFound)
	s.router.MethodNotAllowed(metaHandler.HandleMethodNotAllowed)

	s.router.Get("/", metaHandler.HandleRoot)
	s.router.Get("/healthz", metaHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === API Routes ===
	s.router.Route(s.config.APIPrefix, func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.HandleRegister)
			r.With(requireAuth).Get("/me", userHandler.HandleMe)
			r.With(requireAuth).Put("/me", userHandler.HandleUpdateMe)
			r.Get("/{id}", userHandler.HandleGet)
			r.With(requireAuth, requireAdmin).Delete("/{id}", userHandler.HandleDelete)
		})

		r.Route("/fragments", func(r chi.Router) {
			r.With(optionalAuth).Get("/", fragmentHandler.HandleList)
			r.With(requireAuth).Post("/", fragmentHandler.HandleCreate)
			r.With(optionalAuth).Get("/{id}", fragmentHandler.HandleGet)
			r.With(requireAuth).Put("/{id}", fragmentHandler.HandleUpdate)
			r.With(requireAuth).Delete("/{id}", fragmentHandler.HandleDelete)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/{fragment_id}", likeHandler.HandleLike)
			r.Delete("/{fragment_id}", likeHandler.HandleUnlike)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.HandleList)
			r.With(requireAuth, requireAdmin).Post("/", tagHandler.HandleCreate)
			r.With(requireAuth, requireAdmin).Delete("/{id}", tagHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("apiPrefix", s.config.APIPrefix),
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
