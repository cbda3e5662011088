// Package commands holds the squadsync CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pesworks/squadsync/internal/config"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/notifier"
	"github.com/pesworks/squadsync/internal/telemetry"
	"github.com/pesworks/squadsync/internal/webclient"
	"github.com/spf13/cobra"
)

const serviceName = "squadsync"

var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:          "squadsync",
		Short:        "squadsync keeps a local squad database and its team assets in sync with real-world transfers.",
		SilenceUsage: true,
	}

	leagueFilter string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&leagueFilter, "league", "", "restrict the run to a single competition code (e.g. PL)")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles everything a stage needs; built once per invocation so
// components get explicit configuration instead of ambient globals.
type app struct {
	cfg   *config.Config
	tel   *telemetry.Telemetry
	notif notifier.Notifier
}

// setup loads configuration, installs the run-scoped logger and starts
// telemetry (plus the debug/metrics server when bound). The returned
// cleanup stops the debug server.
func setup(ctx context.Context) (context.Context, *app, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)

		return nil, nil, nil, err
	}

	logger := slog.New(logctx.NewTraceHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.SetDefault(logger)

	logger = logger.With("run_id", uuid.New().String())
	ctx = logctx.WithLogger(ctx, logger)

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		logger.Error("telemetry error", "err", err)

		return nil, nil, nil, err
	}

	cleanup := func() {}

	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint == "" && cfg.Telemetry.BindAddress != "" {
		cleanup = startDebugServer(ctx, cfg.Telemetry.BindAddress, tel)
	}

	var notif notifier.Notifier = notifier.Nop{}
	if cfg.DiscordWebhookURL != "" {
		notif = &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}
	}

	return ctx, &app{cfg: cfg, tel: tel, notif: notif}, cleanup, nil
}

// startDebugServer exposes /metrics and /healthz while the run executes.
func startDebugServer(ctx context.Context, addr string, tel *telemetry.Telemetry) func() {
	logger := logctx.LoggerFromContext(ctx)

	r := chi.NewRouter()
	r.Handle("/metrics", tel.MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Debug("debug server listening", "addr", addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("debug server stopped", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}
}

func (a *app) retryPolicy() webclient.RetryPolicy {
	return webclient.RetryPolicy{
		MaxAttempts: a.cfg.RetryMaxAttempts,
		BaseDelay:   a.cfg.RetryBaseDelay,
		MaxDelay:    a.cfg.RetryMaxDelay,
	}
}

// competitions returns the configured competition codes, narrowed by the
// --league flag when set.
func (a *app) competitions() []string {
	if leagueFilter == "" {
		return a.cfg.Competitions
	}

	for _, code := range a.cfg.Competitions {
		if code == leagueFilter {
			return []string{code}
		}
	}

	return nil
}

// notify sends a best-effort summary; failures are logged, never fatal.
func (a *app) notify(ctx context.Context, format string, args ...any) {
	if err := a.notif.Notify(fmt.Sprintf(format, args...)); err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to send notification", "err", err)
	}
}
