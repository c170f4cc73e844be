// Command server runs a helo stack behind net/http.
//
// Configuration is read from a YAML file (-config, HELO_CONFIG,
// ./config.yaml or /etc/helo/config.yaml), an optional .env file and
// HELO_* environment variables. See pkg/config for the full list.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/helo/pkg/config"
	"github.com/rhuss/helo/pkg/debug"
	"github.com/rhuss/helo/pkg/observability"
	"github.com/rhuss/helo/pkg/transport"
	transporthttp "github.com/rhuss/helo/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := debug.Init(os.Stderr, cfg.Log.Debug, cfg.Log.Level)

	stack, err := newStack(cfg, logger)
	if err != nil {
		return err
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
		transporthttp.WithHandler("GET /healthz", http.HandlerFunc(healthz)),
	}

	if cfg.Observability.Metrics.Enabled {
		stop, err := observability.Instrument(stack)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		defer stop()
		opts = append(opts, transporthttp.WithHandler("GET "+cfg.Observability.Metrics.Path, promhttp.Handler()))
	}

	srv, err := transporthttp.NewServer(stack, opts...)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("auth", cfg.Auth.Type),
		slog.Bool("metrics", cfg.Observability.Metrics.Enabled),
		slog.Duration("request_timeout", cfg.Server.RequestTimeout),
	)
	return srv.ListenAndServe()
}

// newStack builds and finalizes the stack described by cfg.
func newStack(cfg *config.Config, logger *slog.Logger) (*transport.Stack, error) {
	stack := transport.New(
		transport.WithLogger(logger),
		transport.WithContentTypes(transport.ContentTypes{
			HTML: cfg.ContentTypes.HTML,
			JSON: cfg.ContentTypes.JSON,
			Form: cfg.ContentTypes.Form,
		}),
	)

	for _, resp := range cfg.ErrorResponseList() {
		if err := stack.SetErrorResponse(resp); err != nil {
			return nil, fmt.Errorf("error response %d: %w", resp.StatusCode, err)
		}
	}

	authPlugin, err := newAuthPlugin(cfg)
	if err != nil {
		return nil, err
	}

	plugins := []*transport.Plugin{
		transport.RequestID(),
		{Middleware: transport.Logging(logger)},
		authPlugin,
	}
	if cfg.Server.RequestTimeout > 0 {
		plugins = append(plugins, &transport.Plugin{Middleware: transport.Timeout(cfg.Server.RequestTimeout)})
	}
	for _, p := range plugins {
		if err := stack.Install(p); err != nil {
			return nil, err
		}
	}

	transport.LogEvents(stack, logger)

	if err := stack.Finalize(demo); err != nil {
		return nil, err
	}
	return stack, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
