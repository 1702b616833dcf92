// Package server provides the HTTP server and routing for the trade
// analytics pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/auth"
	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/modules/features"
	featureshandlers "github.com/aristath/journal/internal/modules/features/handlers"
	"github.com/aristath/journal/internal/modules/grouping"
	groupinghandlers "github.com/aristath/journal/internal/modules/grouping/handlers"
	"github.com/aristath/journal/internal/modules/patterns"
	patternshandlers "github.com/aristath/journal/internal/modules/patterns/handlers"
	"github.com/aristath/journal/internal/modules/recovery"
	recoveryhandlers "github.com/aristath/journal/internal/modules/recovery/handlers"
	"github.com/aristath/journal/internal/modules/trades"
	tradeshandlers "github.com/aristath/journal/internal/modules/trades/handlers"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/risk"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	Config        *config.Config
	EventsDB      *database.DB
	JournalDB     *database.DB
	BackupService *reliability.BackupService // nil when backups are not configured
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	eventsDB       *database.DB
	journalDB      *database.DB
	cfg            *config.Config
	tokenRepo      *auth.TokenRepository
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server with all module services wired in
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		eventsDB:  cfg.EventsDB,
		journalDB: cfg.JournalDB,
		cfg:       cfg.Config,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		map[string]*database.DB{
			"events":  cfg.EventsDB,
			"journal": cfg.JournalDB,
		},
		cfg.BackupService,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes builds module services and registers all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	journalConn := s.journalDB.Conn()
	eventsConn := s.eventsDB.Conn()

	calc := risk.NewCalculator(nil)

	tradeRepo := trades.NewTradeRepository(journalConn, log)
	groupRepo := grouping.NewGroupRepository(journalConn, log)
	eventRepo := recovery.NewEventRepository(eventsConn, log)
	accountRepo := recovery.NewAccountRepository(journalConn, log)
	featureRepo := features.NewFeatureRepository(journalConn, log)
	s.tokenRepo = auth.NewTokenRepository(journalConn, log)

	groupingService := grouping.NewService(tradeRepo, groupRepo, log)
	recoveryService := recovery.NewService(eventRepo, accountRepo, tradeRepo, calc, log)
	featuresService := features.NewService(tradeRepo, featureRepo, calc, log)
	patternsService := patterns.NewService(tradeRepo, log)

	groupingHandlers := groupinghandlers.NewGroupingHandlers(groupingService, log)
	featureHandlers := featureshandlers.NewFeatureHandlers(featuresService, log)
	recoveryHandlers := recoveryhandlers.NewRecoveryHandlers(recoveryService, log)
	patternHandlers := patternshandlers.NewPatternHandlers(patternsService, log)
	tradeHandlers := tradeshandlers.NewTradeHandlers(tradeRepo, log)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		groupingHandlers.RegisterRoutes(r)
		featureHandlers.RegisterRoutes(r)

		// Bearer-token protected surface
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.tokenRepo, log))
			recoveryHandlers.RegisterRoutes(r)
			patternHandlers.RegisterRoutes(r)
			tradeHandlers.RegisterRoutes(r)
		})

		s.systemHandlers.RegisterRoutes(r)
	})
}

// handleHealth returns liveness plus a quick check of both databases
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	databases := map[string]string{}
	for name, db := range map[string]*database.DB{"events": s.eventsDB, "journal": s.journalDB} {
		if err := db.HealthCheck(ctx); err != nil {
			databases[name] = "error"
			status = "degraded"
		} else {
			databases[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"databases": databases,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() chi.Router {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
