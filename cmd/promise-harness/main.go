package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promise-harness/internal/config"
	"promise-harness/internal/logging"
	"promise-harness/internal/promise"
	"promise-harness/internal/server"
	"promise-harness/internal/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides APP_PORT)")
)

type app struct {
	cfg      *config.Config
	provider *telemetry.Provider
	metrics  *telemetry.HarnessMetrics
	harness  *promise.Harness
	loader   *promise.ScriptLoader
	panel    *promise.Panel
}

func main() {
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	logging.Init(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.Init(ctx, cfg.OTelServiceName, cfg.OTelEndpoint, cfg.Environment)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer shutdownTelemetry(provider)

	a, err := newApp(cfg, provider)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to build harness")
		os.Exit(1)
	}

	switch *mode {
	case "cli", "server", "both":
	default:
		logging.Logger().Error().Str("mode", *mode).Msg("invalid mode, must be cli, server, or both")
		os.Exit(1)
	}

	if err := a.run(ctx, *mode); err != nil {
		logging.Error(ctx).Err(err).Msg("harness stopped with error")
	}
}

func newApp(cfg *config.Config, provider *telemetry.Provider) (*app, error) {
	metrics, err := telemetry.NewHarnessMetrics(provider.Meter)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout:   cfg.HTTPClientTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	globals := promise.NewGlobals()
	anchor := promise.NewAnchor(promise.FeaturePromiseWidget)

	loader := &promise.ScriptLoader{
		URL:        cfg.WidgetScriptURL,
		GlobalName: cfg.WidgetGlobalName,
		Globals:    globals,
		Entrypoint: promise.NewWidgetEntrypoint(anchor),
		Client:     client,
		Metrics:    metrics,
	}
	if cfg.ScriptLoadAttempts > 0 {
		loader.MaxAttempts = uint(cfg.ScriptLoadAttempts)
	}

	poller := promise.NewReadinessPoller(globals, promise.DefaultWidgetParameters(), promise.PollerConfig{
		GlobalName: cfg.WidgetGlobalName,
		Command:    promise.FeaturePromiseWidget,
		Interval:   cfg.WidgetPollInterval,
		Timeout:    cfg.WidgetPollTimeout,
	}, promise.WithObserver(func(ctx context.Context, state promise.PollerState, elapsed time.Duration, err error) {
		metrics.RecordReadiness(ctx, state.String(), elapsed.Seconds())
		if err != nil {
			logging.Warn(ctx).Err(err).Str("state", state.String()).Dur("elapsed", elapsed).Msg("widget readiness finished with error")
			return
		}
		logging.Info(ctx).Str("state", state.String()).Dur("elapsed", elapsed).Msg("widget entry point invoked")
	}))

	panel := promise.NewPanel(promise.PanelConfig{
		Endpoint: cfg.APIEndpoint,
		Origin:   cfg.APIOrigin,
	}, client, promise.WithRetailer(cfg.Retailer))

	return &app{
		cfg:      cfg,
		provider: provider,
		metrics:  metrics,
		loader:   loader,
		panel:    panel,
		harness: &promise.Harness{
			Globals: globals,
			Anchor:  anchor,
			Poller:  poller,
			Panel:   promise.NewInstrumentedPanel(panel, provider.Tracer, metrics),
		},
	}, nil
}

// run activates the widget poller, starts the script download and then the
// requested front ends. It returns once every front end has stopped.
func (a *app) run(ctx context.Context, mode string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.harness.Poller.Activate(ctx); err != nil {
		return err
	}
	defer a.harness.Poller.Deactivate()
	defer a.panel.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.loader.Load(gctx); err != nil {
			logging.Error(gctx).Err(err).Msg("widget script unavailable, readiness poller will time out")
		}
		return nil
	})

	if mode == "cli" || mode == "both" {
		g.Go(func() error {
			shell := promise.NewShell(a.harness, os.Stdin, os.Stdout, a.provider.Tracer)
			shell.Run(gctx)
			logging.Info(gctx).Msg("CLI exited")
			cancel()
			return nil
		})
	}

	if mode == "server" || mode == "both" {
		srv := server.NewServer(a.cfg.Port, a.harness, a.cfg.OTelServiceName)

		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logging.Info(context.Background()).Msg("received shutdown signal")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func shutdownTelemetry(provider *telemetry.Provider) {
	logging.Info(context.Background()).Msg("shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := provider.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx).Err(err).Msg("error shutting down telemetry")
	}
}
