package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/auth"
	"github.com/erauner12/shopnow-proxy/internal/config"
	"github.com/erauner12/shopnow-proxy/internal/httpapi"
	"github.com/erauner12/shopnow-proxy/internal/proxy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	configureLogging(cfg)

	log.Info().Object("salesforce", cfg.Salesforce).Msg("loaded Salesforce configuration")

	if missing := cfg.Salesforce.MissingPasswordFields(); len(missing) > 0 {
		log.Warn().
			Strs("missing", missing).
			Msg("password flow disabled: missing Salesforce credentials in environment variables")
	}

	strategies := auth.DefaultStrategies(cfg.Salesforce, cfg.Server.TokenTimeout, cfg.Server.CLITimeout)

	broker := auth.NewBroker(auth.NewTokenCache(), strategies...)

	srv := &httpapi.Server{
		Proxy:          proxy.New(cfg.Salesforce.InstanceURL, broker, cfg.Server.UpstreamTimeout),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}

	ln, port, err := listenWithFallback(cfg.Server.Port, cfg.Server.PortAttempts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	// Upstream calls have their own shorter timeout; WriteTimeout bounds the whole response
	httpServer := &http.Server{
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", port).
			Str("health", fmt.Sprintf("http://localhost:%d/health", port)).
			Msg("Salesforce proxy server running")
		if port != cfg.Server.Port {
			log.Info().Int("default", cfg.Server.Port).Int("port", port).Msg("default port in use, using fallback")
		}
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}

func configureLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "shopnow-proxy").Logger()

	// Pretty logging for local dev (only when explicitly set to "dev")
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// log.Ctx falls back to the global logger outside request scope
	zerolog.DefaultContextLogger = &log.Logger
}

// listenWithFallback binds port, moving to the next one while it is in use
func listenWithFallback(port, attempts int) (net.Listener, int, error) {
	for i := 0; i < attempts; i++ {
		candidate := port + i
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", candidate))
		if err == nil {
			return ln, candidate, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, 0, err
		}
		log.Warn().Int("port", candidate).Int("next", candidate+1).Msg("port in use, trying next")
	}
	return nil, 0, fmt.Errorf("could not find available port after %d attempts", attempts)
}
