// Package server wires the application together: database, services,
// handlers, middleware and routes. It is the composition root; every
// dependency is built in New and nowhere else.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlstore.DB (repository.Store)
//	             → services (AuthService, GroupService, MenuService, MealPlanService, ShareService)
//	             → handlers → chi routes
//
// Handlers never touch the database and services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/config"
	"github.com/sakif/menu-planner/internal/handler"
	"github.com/sakif/menu-planner/internal/middleware"
	"github.com/sakif/menu-planner/internal/repository/sqlstore"
	"github.com/sakif/menu-planner/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New opens the database described by cfg, runs migrations and registers
// every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.Open(sqlstore.Config{
		Type: cfg.DatabaseType,
		Path: cfg.DBPath,
		URL:  cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var provider handler.OAuthProvider
	if cfg.GoogleEnabled() {
		provider = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google sign-in is disabled")
	}

	s, err := newServer(cfg, logger, db, provider)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newServer builds the router around an open database. Tests call it with
// an in-memory store and a fake OAuth provider.
func newServer(cfg *config.Config, logger *slog.Logger, db *sqlstore.DB, provider handler.OAuthProvider) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, provider)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers middleware and routes.
//
// ROUTES (all JSON, under /api):
//
//	GET    /health
//	GET    /auth/google, /auth/google/callback     public
//	POST   /auth/logout                            public
//	GET    /auth/me, PATCH /auth/preferences       session
//	/groups/...                                    session
//	GET    /menu/tags, /menu/ingredients           public
//	/menu/items/...                                session
//	/plans/...                                     session
//	GET    /share/shared/{token}                   public
//	/share/...                                     session
//
// MIDDLEWARE ORDER:
// RequestID runs first so the logger can include it; Recoverer sits inside
// the logger so a panic is logged as a 500 rather than lost.
func (s *Server) setupRoutes(tokens *auth.TokenService, provider handler.OAuthProvider) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authService := service.NewAuthService(s.db, tokens, s.logger)
	groupService := service.NewGroupService(s.db, s.logger)
	menuService := service.NewMenuService(s.db, s.logger)
	planService := service.NewMealPlanService(s.db, s.logger)
	shareService := service.NewShareService(s.db, s.config.ClientURL, s.logger)

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(provider, authService, handler.SessionConfig{
		TTL:          tokens.TTL(),
		CookieSecure: s.config.CookieSecure,
		ClientURL:    s.config.ClientURL,
	}, s.logger)
	groupHandler := handler.NewGroupHandler(groupService, s.logger)
	menuHandler := handler.NewMenuHandler(menuService, s.logger)
	planHandler := handler.NewMealPlanHandler(planService, s.logger)
	shareHandler := handler.NewShareHandler(shareService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/google", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
			r.Post("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.HandleMe)
				r.Patch("/preferences", authHandler.HandlePreferences)
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", groupHandler.HandleCreate)
			r.Get("/", groupHandler.HandleList)
			r.Get("/active", groupHandler.HandleGetActive)
			r.Put("/active", groupHandler.HandleSwitchActive)
			r.Post("/join/{code}", groupHandler.HandleJoin)
			r.Get("/{id}/members", groupHandler.HandleListMembers)
			r.Delete("/{id}/members/{memberId}", groupHandler.HandleRemoveMember)
			r.Post("/{id}/invite", groupHandler.HandleRegenerateInvite)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/tags", menuHandler.HandleListTags)
			r.Get("/ingredients", menuHandler.HandleListIngredients)

			r.Route("/items", func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", menuHandler.HandleList)
				r.Post("/", menuHandler.HandleCreate)
				r.Get("/{id}", menuHandler.HandleGet)
				r.Put("/{id}", menuHandler.HandleUpdate)
				r.Delete("/{id}", menuHandler.HandleDelete)
				r.Post("/{id}/favorite", menuHandler.HandleToggleFavorite)
				r.Post("/{id}/ratings", menuHandler.HandleRate)
			})
		})

		r.Route("/plans", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", planHandler.HandleList)
			r.Post("/", planHandler.HandleCreate)
			r.Get("/day/{date}", planHandler.HandleListDay)
			r.Put("/{id}", planHandler.HandleUpdate)
			r.Delete("/{id}", planHandler.HandleDelete)

			r.Post("/shopping-list", planHandler.HandleGenerateShoppingList)
			r.Get("/shopping-lists", planHandler.HandleListShoppingLists)
			r.Get("/shopping-lists/{id}", planHandler.HandleGetShoppingList)
			r.Delete("/shopping-lists/{id}", planHandler.HandleDeleteShoppingList)
			r.Patch("/shopping-lists/{id}/items/{itemId}", planHandler.HandleToggleShoppingItem)
		})

		r.Route("/share", func(r chi.Router) {
			r.Get("/shared/{token}", shareHandler.HandleResolve)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{menuItemId}", shareHandler.HandleCreate)
				r.Get("/{menuItemId}/links", shareHandler.HandleList)
				r.Delete("/links/{shareId}", shareHandler.HandleDelete)
			})
		})
	})

	if s.config.StaticDir != "" {
		s.router.Handle("/*", spaHandler(s.config.StaticDir))
	}
}

// spaHandler serves files from dir and falls back to index.html for any
// path that is not a file, so client-side routes survive a reload.
func spaHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean)))
		if err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the database (deferred, so it also runs on a listen error)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.db.Dialect()),
			slog.String("clientURL", s.config.ClientURL),
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
