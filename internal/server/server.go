package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sozercan/gemini-mole/internal/assistant"
	"github.com/sozercan/gemini-mole/internal/config"
	"github.com/sozercan/gemini-mole/internal/gemini"
	"github.com/sozercan/gemini-mole/internal/images"
	"github.com/sozercan/gemini-mole/internal/parser"
)

// Deps are the collaborators the HTTP handlers drive.
type Deps struct {
	Generator gemini.Generator
	Assistant *assistant.Assistant
	Fetcher   *images.Fetcher
	Parser    *parser.Parser
}

type Server struct {
	cfg       config.Config
	server    *http.Server
	router    *chi.Mux
	sessions  *registry
	generator gemini.Generator
	assistant *assistant.Assistant
	fetcher   *images.Fetcher
	parser    *parser.Parser
}

func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		sessions:  newRegistry(),
		generator: deps.Generator,
		assistant: deps.Assistant,
		fetcher:   deps.Fetcher,
		parser:    deps.Parser,
	}
	if s.parser == nil {
		s.parser = parser.New(nil, parser.ParsePolicy(cfg.Gemini.CandidatePolicy))
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(s.router, cfg.Telemetry.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/parse", s.handleParse)
		r.Post("/code", s.handleCode)
		r.Post("/replit", s.handleReplit)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/messages", s.handleMessage)
			r.Post("/choose", s.handleChoose)
			r.Post("/images", s.handleImages)
		})
	})
}

// Handler returns the routed handler without the network listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) Run() error {
	// Create a channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Starting shutdown", "signal", sig, "sessions", s.sessions.len())

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}
