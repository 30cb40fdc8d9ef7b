// Package main is the entry point for the pipeterm API server. It serves SQL
// queries over the CSV lakes found under the configured lake root.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pipeterm/internal/api"
	"pipeterm/internal/config"
	"pipeterm/internal/engine"
	"pipeterm/internal/lake"
	"pipeterm/internal/middleware"
	"pipeterm/internal/service/query"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile, envFile string

	cmd := &cobra.Command{
		Use:           "pipeterm-server",
		Short:         "Serve SQL queries over CSV data lakes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			if cfgFile == "" {
				cfgFile = os.Getenv(config.EnvPrefix + "CONFIG")
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger := cfg.NewLogger(os.Stderr)
			slog.SetDefault(logger)
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "path to a YAML config file (env: PIPETERM_CONFIG)")
	f.StringVar(&envFile, "env-file", ".env", "path to a .env file; missing is fine")
	f.String("lake-root", config.DefaultLakeRoot(), "directory holding one sub-directory per lake")
	f.String("listen-addr", ":8000", "HTTP listen address")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	f.Duration("query-timeout", 0, "per-statement timeout (0 disables)")
	f.Float64("rate-limit-rps", 0, "sustained requests per second per client IP; off unless set above 0")
	f.Int("rate-limit-burst", 200, "burst capacity per client")
	f.StringSlice("cors-allowed-origins", []string{"*"}, "allowed CORS origins")
	return cmd
}

// newHandler wires resolver, gateway, service and router for cfg.
func newHandler(cfg *config.Config, logger *slog.Logger) http.Handler {
	resolver := lake.NewResolver(cfg.LakeRoot)
	gateway := engine.NewGateway(resolver, logger.With("component", "engine"),
		engine.WithQueryTimeout(cfg.QueryTimeout))
	svc := query.NewQueryService(resolver, gateway, resolver.Root(), logger.With("component", "query"))
	handler := api.NewHandler(svc, cfg.ServiceName, logger.With("component", "api"))

	return api.NewRouter(handler, api.RouterConfig{
		Logger: logger.With("component", "http"),
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for at most cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      newHandler(cfg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("HTTP API listening", "addr", ln.Addr().String(), "lake_root", cfg.LakeRoot)
		logger.Info("try: curl http://" + curlHostForListenAddr(cfg.ListenAddr) + "/api/v1/lakes")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// curlHostForListenAddr turns a listen address into a host:port a local curl
// can reach. Wildcard and empty hosts become localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8000"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
