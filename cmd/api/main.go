package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadrelay/cmd/mainconfig"
	"github.com/wolfman30/leadrelay/internal/api/router"
	"github.com/wolfman30/leadrelay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadrelay/internal/config"
	httpmiddleware "github.com/wolfman30/leadrelay/internal/http/middleware"
	"github.com/wolfman30/leadrelay/internal/notify"
	"github.com/wolfman30/leadrelay/internal/observability/metrics"
	"github.com/wolfman30/leadrelay/internal/relay"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	logger.Info("starting lead relay API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	handler, cleanup := buildHandler(ctx, cfg, logger)
	defer cleanup()

	srv := newServer(cfg, handler)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// In-flight submissions may still be waiting on mail delivery.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildHandler wires every collaborator of the relay. The returned cleanup
// releases the Redis connection when one was opened.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func()) {
	metricsHandler, relayMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	relayHandler := relay.NewHandler(relay.Config{
		Forwarder:     bootstrap.BuildForwarder(cfg, logger.Component("crm")),
		Notifier:      bootstrap.BuildNotifier(cfg, buildSESClient(ctx, cfg, logger), logger.Component("notify")),
		Inbox:         cfg.NotifyToEmail,
		NotifyTimeout: cfg.NotifyTimeout,
		Metrics:       relayMetrics,
		Logger:        logger.Component("relay"),
	})

	r := router.New(&router.Config{
		Logger:         logger,
		RelayHandler:   relayHandler,
		MetricsHandler: metricsHandler,
		CORS:           httpmiddleware.CORSOptions{AllowedOrigins: cfg.CORSAllowedOrigins},
		RateLimiter:    bootstrap.BuildRateLimiter(cfg, redisClient, logger),
	})
	return r, cleanup
}

// buildSESClient returns nil (not a typed nil) when SES is unavailable so the
// channel is left out rather than failing on every send.
func buildSESClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.SESAPI {
	client, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config; SES channel disabled", "error", err)
		return nil
	}
	if client == nil {
		return nil
	}
	return client
}

func setupMetrics() (http.Handler, *metrics.RelayMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewRelayMetrics(reg)
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Submissions wait on CRM and mail before responding.
		WriteTimeout: cfg.HubSpotTimeout + cfg.NotifyTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
