package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcadia/config"
	"arcadia/core"
	"arcadia/explorer"
	"arcadia/observability/logging"
	telemetry "arcadia/observability/otel"
	"arcadia/rpc"
	"arcadia/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memoryFlag := flag.Bool("memory", false, "DEV ONLY: run against an in-memory database")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ARCADIA_ENV"))
	logger := logging.Setup("arcadiad", env)

	shutdownTelemetry := setupTelemetry(logger, env)
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	var db storage.Database
	if *memoryFlag {
		db = storage.NewMemDB()
	} else {
		leveldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		defer leveldb.Close()
		db = leveldb
	}

	history, err := explorer.Open(filepath.Join(cfg.DataDir, "receipts.db"))
	if err != nil {
		logger.Error("failed to open receipt store", slog.Any("error", err))
		os.Exit(1)
	}
	defer history.Close()

	nodeCfg, err := cfg.NodeConfig()
	if err != nil {
		logger.Error("failed to resolve node config", slog.Any("error", err))
		os.Exit(1)
	}
	oracle, manualPrices := cfg.BuildOracle()

	node, err := core.NewNode(db, nodeCfg, oracle)
	if err != nil {
		logger.Error("failed to start node", slog.Any("error", err))
		os.Exit(1)
	}
	node.Subscribe(history)

	for _, module := range cfg.PausedModules {
		module = strings.TrimSpace(module)
		if module == "" {
			continue
		}
		if err := node.Pause(nodeCfg.PauseAuthority, module); err != nil {
			logger.Error("failed to apply configured pause", slog.String("module", module), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("module paused at startup", slog.String("module", module))
	}

	rpcServer := rpc.NewServer(node, history)
	rpcServer.SetPriceOverrides(manualPrices)
	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpcServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr := strings.TrimSpace(os.Getenv("ARCADIA_METRICS_ADDR")); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics listening", slog.String("address", metricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("rpc listening", slog.String("address", cfg.RPCAddress), slog.String("network", cfg.NetworkName))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("rpc server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func setupTelemetry(logger *slog.Logger, env string) func(context.Context) error {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return nil
	}
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "arcadiad",
		Environment: env,
		Endpoint:    endpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	return shutdown
}
