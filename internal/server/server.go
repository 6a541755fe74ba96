// Package server is the composition root: it opens the database and the
// page cache, builds the services and handlers, mounts the routes and runs
// the HTTP server until it is told to stop.
//
// WHAT IS A COMPOSITION ROOT?
// Every other package receives its dependencies as constructor arguments
// and never builds them itself. This is the one place that does build
// them, in dependency order:
//
//	config ──► sqlite.DB, cache ──► auth services ──► domain services
//	       ──► handlers ──► chi router ──► http.Server
//
// Swapping an implementation (Redis for Noop, a file for ":memory:")
// happens here and nowhere else.
//
// WHY SEPARATE FROM main.go?
// Tests call New with an in-memory config and drive Handler through
// httptest.NewServer, exercising the real routes and middleware without
// starting a process or binding a port.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/cache"
	"github.com/sakif/minispace/internal/config"
	"github.com/sakif/minispace/internal/handler"
	"github.com/sakif/minispace/internal/middleware"
	"github.com/sakif/minispace/internal/profile"
	sqliteRepo "github.com/sakif/minispace/internal/repository/sqlite"
	"github.com/sakif/minispace/internal/service"
	"github.com/sakif/minispace/internal/web"
)

// Server owns the database and cache connections; Start closes them on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger zerolog.Logger
	db     *sqliteRepo.DB
	pages  cache.Cache
	redis  *cache.Redis // nil when the page cache is disabled
}

// New opens the stores and wires every route. The returned server is ready
// for Start, or for Handler in tests.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
		pages:  cache.Noop{},
	}

	if cfg.Redis.Enabled() {
		s.redis = cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(context.Background()); err != nil {
			// Pages still render without the cache; reads just miss.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, page cache will miss until it recovers")
		}
		s.pages = s.redis
	}

	if err := s.setupRoutes(); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency graph and mounts:
//
//	/static/*                      embedded assets
//	/healthz                       database and cache check
//	/api/...                       JSON API
//	/auth/github/{login,callback}  GitHub OAuth
//	everything else                HTML pages
//
// /{username} is mounted last; reserved usernames keep it from shadowing
// the fixed routes.
func (s *Server) setupRoutes() error {
	cfg := s.cfg

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if cfg.Auth.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
	}

	markdown := profile.NewMarkdownRenderer(cfg.Render.Sanitize)
	composer := profile.NewComposer(markdown)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	articleService := service.NewArticleService(s.db, s.db, s.pages, s.logger)
	profileService := service.NewProfileService(
		s.db, s.db, composer, articleService, passwords, s.pages, cfg.Redis.TTL, s.logger,
	)

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	views := handler.NewViews(renderer, authService)

	authHandler := handler.NewAuthHandler(views, authService, github, cfg.Auth.SecureCookies, s.logger)
	articleHandler := handler.NewArticleHandler(views, articleService, profileService, markdown, s.logger)
	settingsHandler := handler.NewSettingsHandler(views, profileService, s.logger)
	pageHandler := handler.NewPageHandler(views, articleService, profileService, cfg.Server.BaseURL, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	requirePage := auth.RequirePage(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// MIDDLEWARE ORDER:
	// Each Use wraps everything registered after it, so a request passes
	// through them top to bottom:
	//   RequestID  tags the request so its log line can be correlated
	//   RealIP     trusts X-Forwarded-For when running behind a proxy
	//   Logger     one line per request with status and latency
	//   Recoverer  turns a handler panic into a 500 instead of a crash
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(handler.APINotFound)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/articles/{id}", articleHandler.HandleGet)
			r.Get("/users/{username}/page", settingsHandler.HandleProfilePage)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/auth/me", authHandler.HandleMe)

			r.Post("/articles", articleHandler.HandleCreate)
			r.Put("/articles/{id}", articleHandler.HandleUpdate)
			r.Post("/articles/{id}/publish", articleHandler.HandlePublish)
			r.Delete("/articles/{id}", articleHandler.HandleDelete)

			r.Get("/me/settings", settingsHandler.HandleGetSettings)
			r.Put("/me/settings", settingsHandler.HandleUpdateSettings)
			r.Put("/me/email", settingsHandler.HandleChangeEmail)
		})
	})

	r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	r.Group(func(r chi.Router) {
		r.Use(requirePage)
		r.Get("/profile", pageHandler.HandleDashboard)

		r.Get("/write", articleHandler.HandleWrite)
		r.Post("/write", articleHandler.HandleWriteForm)
		r.Get("/edit/{id}", articleHandler.HandleEdit)
		r.Post("/edit/{id}", articleHandler.HandleEditForm)
		r.Post("/articles/{id}/publish", articleHandler.HandlePublishForm)
		r.Get("/articles/{id}/delete", articleHandler.HandleConfirmDelete)
		r.Post("/articles/{id}/delete", articleHandler.HandleDeleteForm)

		r.Get("/settings", settingsHandler.HandleSettingsPage)
		r.Post("/settings", settingsHandler.HandleSettingsForm)
		r.Post("/settings/email", settingsHandler.HandleEmailForm)
	})

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", pageHandler.HandleHome)
		r.Get("/discover", pageHandler.HandleDiscover)
		r.Get("/users", pageHandler.HandleUsers)

		r.Get("/login", authHandler.HandleLoginPage)
		r.Post("/login", authHandler.HandleLoginForm)
		r.Get("/register", authHandler.HandleRegisterPage)
		r.Post("/register", authHandler.HandleRegisterForm)
		r.Post("/logout", authHandler.HandleLogoutForm)

		r.Get("/articles/{id}", articleHandler.HandleShow)
		r.Get("/{username}", pageHandler.HandleProfile)
		r.Get("/{username}/feed.xml", pageHandler.HandleFeed)
	})

	r.NotFound(views.NotFound)
	return nil
}

// handleHealth reports 503 when the database is down. A missing cache only
// degrades the response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	database, pageCache := "ok", "ok"

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("health: database ping failed")
		database, status, code = "down", "down", http.StatusServiceUnavailable
	}
	if err := s.pages.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health: cache ping failed")
		pageCache = "down"
		if code == http.StatusOK {
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q,"database":%q,"cache":%q}`+"\n", status, database, pageCache)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// for up to the shutdown timeout and closes the stores.
//
// GRACEFUL SHUTDOWN:
//  1. ListenAndServe runs in a goroutine and reports into serverErrors.
//  2. signal.NotifyContext cancels ctx on Ctrl+C or a container stop.
//  3. srv.Shutdown stops accepting connections and waits for active
//     requests to finish, up to ShutdownTimeout.
//  4. The deferred close releases Redis and SQLite after the last request.
//
// Without step 3 a deploy would cut off a request halfway through saving
// an article.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().
			Int("port", s.cfg.Server.Port).
			Str("url", s.cfg.Server.BaseURL).
			Str("database", s.cfg.Database.Path).
			Bool("pageCache", s.redis != nil).
			Bool("github", s.cfg.Auth.GitHubEnabled()).
			Msg("server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info().Msg("server stopped gracefully")
	}
	return nil
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing redis")
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing database")
	}
}

// Close releases the stores without serving. Tests use it.
func (s *Server) Close() {
	s.close()
}
