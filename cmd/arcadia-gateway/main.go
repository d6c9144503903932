package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"arcadia/gateway/config"
	"arcadia/gateway/middleware"
	"arcadia/gateway/routes"
	"arcadia/observability/logging"
	telemetry "arcadia/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to gateway configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ARCADIA_ENV"))
	slogger := logging.Setup("arcadia-gateway", env)
	logger := log.New(os.Stdout, "gateway ", log.LstdFlags|log.Lmsgprefix)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if cfg.Observability.Tracing || cfg.Observability.Metrics {
		otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		insecure := true
		if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				insecure = parsed
			}
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: cfg.Observability.ServiceName,
			Environment: env,
			Endpoint:    otlpEndpoint,
			Insecure:    insecure,
			Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Metrics:     cfg.Observability.Metrics,
			Traces:      cfg.Observability.Tracing,
		})
		if err != nil {
			slogger.Error("failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if shutdownTelemetry != nil {
				_ = shutdownTelemetry(context.Background())
			}
		}()
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   cfg.Observability.ServiceName,
		MetricsPrefix: cfg.Observability.MetricsPrefix,
		LogRequests:   cfg.Observability.LogRequests,
		Enabled:       cfg.Observability.Metrics || cfg.Observability.Tracing,
	}, logger)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled,
		HMACSecret: cfg.Auth.Secret(),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ScopeClaim: cfg.Auth.ScopeClaim,
		ClockSkew:  cfg.Auth.ClockSkew,
	}, logger)

	rateLimits := make(map[string]middleware.RateLimit)
	for _, entry := range cfg.RateLimits {
		if entry.ID == "" {
			continue
		}
		rateLimits[entry.ID] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			RatePerSecond:     entry.RatePerSecond,
			Burst:             entry.Burst,
		}
	}
	if len(rateLimits) == 0 {
		rateLimits[routes.RateKeyStakingRead] = middleware.RateLimit{RatePerSecond: 10, Burst: 40}
		rateLimits[routes.RateKeyStakingWrite] = middleware.RateLimit{RatePerSecond: 1, Burst: 10}
		rateLimits[routes.RateKeyAdmin] = middleware.RateLimit{RatePerSecond: 1, Burst: 5}
	}

	nodeToken := strings.TrimSpace(os.Getenv(cfg.Node.TokenEnv))
	if nodeToken == "" {
		logger.Printf("warning: %s is empty; privileged node methods will be rejected upstream", cfg.Node.TokenEnv)
	}

	router, err := routes.New(routes.Config{
		Node:          routes.NewNodeClient(cfg.Node.Endpoint, nodeToken, cfg.Node.Timeout),
		Authenticator: auth,
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
	})
	if err != nil {
		logger.Fatalf("configure routes: %v", err)
	}

	handler := http.Handler(router)
	if cfg.Observability.Tracing {
		handler = otelhttp.NewHandler(router, "arcadia-gateway")
	}

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on %s (node upstream %s)", cfg.ListenAddress, cfg.Node.Endpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen and serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
