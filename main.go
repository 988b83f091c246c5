package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/paystream-hq/payflow/pkg/chainclient"
	"github.com/paystream-hq/payflow/pkg/circuitbreaker"
	"github.com/paystream-hq/payflow/pkg/composer"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/engine"
	"github.com/paystream-hq/payflow/pkg/guard"
	"github.com/paystream-hq/payflow/pkg/health"
	"github.com/paystream-hq/payflow/pkg/identity"
	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/monitor"
	"github.com/paystream-hq/payflow/pkg/quotes"
	"github.com/paystream-hq/payflow/pkg/resolver"
	"github.com/paystream-hq/payflow/pkg/router"
	"github.com/paystream-hq/payflow/pkg/store"
	"github.com/paystream-hq/payflow/pkg/vendor"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := chainclient.New(ctx, cfg.RPCURL, cfg.SwapRouterAddress, stdLogger)
	if err != nil {
		log.Fatalf("Failed to connect to chain: %v", err)
	}
	defer chain.Close()

	var records store.Store
	if cfg.PostgresDSN != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to record store: %v", err)
		}
		defer pgStore.Close()
		records = pgStore
		stdLogger.InfoWithComponent(logger.Store, "Using Postgres record store")
	} else {
		records = store.NewMemoryStore()
		stdLogger.NoticeWithComponent(logger.Store, "POSTGRES_DSN not set, records will not survive a restart")
	}

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		stdLogger,
	)

	quoteSource := quotes.NewVenueSource(chain, cfg.Tokens, cfg.QuoteTTL, breaker, stdLogger)
	optimizer := router.New(quoteSource, cfg.IntermediateCurrencies, cfg.Tokens.Native(), stdLogger)
	spendGuard := guard.New(cfg.MaxTxAmount, cfg.ConfirmThreshold, cfg.ReferenceCurrency, cfg.FiatRates)

	identityClient := identity.New(cfg.IdentityEndpoint, stdLogger)
	recipientResolver := resolver.New(identityClient, stdLogger)

	planner := composer.New(
		recipientResolver,
		optimizer,
		chain,
		spendGuard,
		cfg.Tokens,
		cfg.SwapRouterAddress,
		cfg.CollectionAddress,
		cfg.SlippagePercent,
		cfg.ApprovalAmount,
		stdLogger,
	)

	vendorClient := vendor.New(cfg.VendorEndpoint, stdLogger)
	txMonitor := monitor.New(
		chain,
		records,
		vendorClient,
		cfg.Tokens,
		cfg.CollectionAddress,
		cfg.KnownVendors,
		cfg.WorkerCount,
		cfg.ReceiptTimeout,
		stdLogger,
	)

	service := engine.New(planner, records, txMonitor, stdLogger)

	healthServer := health.NewServer(
		cfg.MetricsPort,
		chain,
		records,
		breaker,
		service,
		cfg.NetworkID,
		os.Getenv("METRICS_API_KEY"),
		stdLogger,
	)
	go healthServer.Start()

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		stdLogger.Notice("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	stdLogger.InfoWithComponent(logger.Engine, "Starting payment orchestration engine on network %d", cfg.NetworkID)
	txMonitor.Start(ctx)

	<-ctx.Done()
	txMonitor.Stop()
	stdLogger.Info("Shutdown complete")
}
