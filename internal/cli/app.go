// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/cloud"
	"github.com/it-at-m/mucgpt-sub002/internal/config"
	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
	"github.com/it-at-m/mucgpt-sub002/internal/session"
	"github.com/it-at-m/mucgpt-sub002/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GlobalOptions holds the persistent flags.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	JSON       bool
}

// App holds the resources shared by all commands of one invocation.
// Resources are opened lazily and released by Close.
type App struct {
	opts GlobalOptions
	out  io.Writer
	err  io.Writer

	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	store      *storage.Store
	client     *cloud.Client
	metricsSrv *http.Server
}

// NewApp creates an App writing command output to out and diagnostics to errOut.
func NewApp(out, errOut io.Writer) *App {
	return &App{
		out:     out,
		err:     errOut,
		log:     logging.Get(),
		metrics: metrics.New(),
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// loadConfig reads the configuration and sets up logging.
func (a *App) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.opts.ConfigPath != "" {
		cfg, err = config.LoadFromPath(a.opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if cfg == nil {
		return err
	}
	loadErr := err

	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if a.opts.LogFormat != "" {
		cfg.Log.Format = a.opts.LogFormat
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, a.err)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logging.Set(log)
	config.SetGlobal(cfg)
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("Using default configuration")
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// startMetrics serves the metrics registry when metrics.addr is set.
func (a *App) startMetrics() error {
	if a.cfg == nil || a.cfg.Metrics.Addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.metrics.Handler())
	a.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn().Err(err).Msg("Metrics server stopped")
		}
	}()
	a.log.Debug().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	if a.cfg == nil {
		return config.Default()
	}
	return a.cfg
}

// =============================================================================
// RESOURCES
// =============================================================================

// Store opens the configured conversation store on first use.
func (a *App) Store() (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	cfg := a.Config()
	dir, err := cfg.Storage.ResolvedDir()
	if err != nil {
		return nil, err
	}
	engine, err := storage.OpenEngine(cfg.Storage.Engine, dir)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Engine, err)
	}

	a.store = storage.NewStore(engine,
		storage.WithMaxConversations(cfg.Storage.MaxConversations),
		storage.WithLogger(a.log),
		storage.WithMetrics(a.metrics),
	)
	return a.store, nil
}

// Client builds the backend client from the configuration.
func (a *App) Client() *cloud.Client {
	if a.client != nil {
		return a.client
	}
	b := a.Config().Backend
	a.client = cloud.NewClient(b.BaseURL).
		WithAPIKey(b.APIKey).
		WithChatPath(b.ChatPath).
		WithTimeout(b.Timeout()).
		WithMaxRetries(b.MaxRetries).
		WithLogger(a.log)
	return a.client
}

// NewSession creates a chat session over the store and backend.
func (a *App) NewSession(chatCfg *config.ChatConfig, opts ...session.Option) (*session.Session, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}

	cfg := a.Config()
	if chatCfg == nil {
		chatCfg = &cfg.Chat
	}
	base := []session.Option{
		session.WithConfig(chatCfg.ToModel()),
		session.WithLogger(a.log),
		session.WithMetrics(a.metrics),
		session.WithDebounce(cfg.Stream.Debounce()),
		session.WithMaxWait(cfg.Stream.MaxWait()),
		session.WithMaxFrameSize(cfg.Stream.MaxFrameBytes),
	}
	return session.New(a.Client(), store, append(base, opts...)...), nil
}

// Close releases everything the App opened.
func (a *App) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, a.metricsSrv.Shutdown(ctx))
		cancel()
	}
	return errors.Join(errs...)
}

// =============================================================================
// OUTPUT
// =============================================================================

// printJSON writes data as a successful JSON response.
func (a *App) printJSON(command string, data any) error {
	return NewJSONResponse(command, data).Print(a.out)
}

// reportError prints err in the active output mode.
func (a *App) reportError(command string, err error) {
	if a.opts.JSON {
		_ = NewJSONErrorResponse(command, err).Print(a.out)
		return
	}
	fmt.Fprintf(a.err, "%s %v\n", RenderConditional(ErrorStyle, "Error:"), err)
}
