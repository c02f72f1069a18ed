// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sozercan/gemini-mole/internal/assistant"
	"github.com/sozercan/gemini-mole/internal/config"
	"github.com/sozercan/gemini-mole/internal/cookies"
	"github.com/sozercan/gemini-mole/internal/gemini"
	"github.com/sozercan/gemini-mole/internal/images"
	"github.com/sozercan/gemini-mole/internal/llm"
	"github.com/sozercan/gemini-mole/internal/parser"
	"github.com/sozercan/gemini-mole/internal/server"
	"github.com/sozercan/gemini-mole/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName)
		if err != nil {
			log.Fatalf("failed to initialize telemetry: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("failed to shut down tracer", "error", err)
			}
		}()
	}

	sessionCookies, err := loadCookies(cfg.Gemini)
	if err != nil {
		log.Fatalf("failed to load gemini cookies: %v", err)
	}
	if missing := cookies.Missing(sessionCookies); len(missing) > 0 {
		slog.Warn("session cookies are incomplete, requests may be rejected", "missing", missing)
	}

	client, err := gemini.NewClient(cfg.Gemini, sessionCookies)
	if err != nil {
		log.Fatalf("failed to create gemini client: %v", err)
	}

	var fallback llm.Provider
	if cfg.OpenRouter.Enabled() {
		fallback, err = llm.NewOpenRouter(cfg.OpenRouter)
		if err != nil {
			log.Fatalf("failed to create fallback provider: %v", err)
		}
	}

	fetcher := images.NewFetcher(&http.Client{
		Timeout:   cfg.Gemini.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, cfg.Images.Concurrency)

	srv := server.New(*cfg, server.Deps{
		Generator: client,
		Assistant: assistant.New(fallback, cfg.Gemini.MaxAttempts),
		Fetcher:   fetcher,
		Parser:    parser.New(client.Cookies(), parser.ParsePolicy(cfg.Gemini.CandidatePolicy)),
	})
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port, "fallback", fallback != nil)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// loadCookies prefers inline cookies, then a cookie file.
func loadCookies(cfg config.GeminiConfig) (map[string]string, error) {
	if cfg.Cookies != "" {
		return cookies.Parse(cfg.Cookies)
	}
	if cfg.CookiesFile != "" {
		return cookies.FromFile(cfg.CookiesFile)
	}
	return cookies.FromEnv("GEMINI_COOKIES")
}
