package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/paystream-hq/payflow/pkg/logger"
)

// Config holds the configuration for the payment orchestration engine.
type Config struct {
	NetworkID         int
	RPCURL            string
	SwapRouterAddress common.Address
	CollectionAddress common.Address

	IdentityEndpoint string
	VendorEndpoint   string
	KnownVendors     []string
	PostgresDSN      string

	WorkerCount    int
	MetricsPort    string
	ReceiptTimeout time.Duration
	QuoteTTL       time.Duration

	// Policy knobs. The defaults mirror production behavior but none of
	// the numeric values is load-bearing.
	SlippagePercent  decimal.Decimal
	ApprovalAmount   decimal.Decimal
	MaxTxAmount      decimal.Decimal
	ConfirmThreshold decimal.Decimal

	ReferenceCurrency      string
	IntermediateCurrencies []string
	FiatRates              map[string]decimal.Decimal

	Tokens *Registry

	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
}

// CircuitBreakerConfig holds quote venue circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging.
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	networkID, err := GetEnvNetworkID()
	if err != nil {
		return nil, err
	}

	rpcURL, err := GetEnvRPCURL()
	if err != nil {
		return nil, err
	}

	routerAddr, err := GetEnvSwapRouterAddress()
	if err != nil {
		return nil, err
	}

	collectionAddr, err := GetEnvCollectionAddress()
	if err != nil {
		return nil, err
	}

	identityEndpoint, err := GetEnvIdentityEndpoint()
	if err != nil {
		return nil, err
	}

	vendorEndpoint, err := GetEnvVendorEndpoint()
	if err != nil {
		return nil, err
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	receiptTimeout, err := GetEnvReceiptTimeout()
	if err != nil {
		return nil, err
	}

	quoteTTL, err := GetEnvQuoteTTL()
	if err != nil {
		return nil, err
	}

	slippage, err := GetEnvSlippagePercent()
	if err != nil {
		return nil, err
	}

	approvalAmount, err := GetEnvApprovalAmount()
	if err != nil {
		return nil, err
	}

	maxTxAmount, err := GetEnvMaxTxAmount()
	if err != nil {
		return nil, err
	}

	confirmThreshold, err := GetEnvConfirmThreshold()
	if err != nil {
		return nil, err
	}

	fiatRates, err := GetEnvFiatRates()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	tokens, err := NewRegistry(networkID)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NetworkID:              networkID,
		RPCURL:                 rpcURL,
		SwapRouterAddress:      routerAddr,
		CollectionAddress:      collectionAddr,
		IdentityEndpoint:       identityEndpoint,
		VendorEndpoint:         vendorEndpoint,
		KnownVendors:           GetEnvKnownVendors(),
		PostgresDSN:            GetEnvPostgresDSN(),
		WorkerCount:            workerCount,
		MetricsPort:            metricsPort,
		ReceiptTimeout:         receiptTimeout,
		QuoteTTL:               quoteTTL,
		SlippagePercent:        slippage,
		ApprovalAmount:         approvalAmount,
		MaxTxAmount:            maxTxAmount,
		ConfirmThreshold:       confirmThreshold,
		ReferenceCurrency:      DefaultReferenceCurrency,
		IntermediateCurrencies: GetEnvIntermediateCurrencies(),
		FiatRates:              fiatRates,
		Tokens:                 tokens,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetEnvLogLevel returns the log level from environment variables.
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "", "info":
		return logger.InfoLevel, nil
	case "debug":
		return logger.DebugLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of debug, info, notice, error", level)
}

// GetEnvLogColoring returns whether log coloring is enabled.
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" || coloring == "true" {
		return true, nil
	}
	if coloring == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}

// validateConfig validates cross-field constraints.
func validateConfig(cfg *Config) error {
	if cfg.ConfirmThreshold.GreaterThan(cfg.MaxTxAmount) {
		return fmt.Errorf("CONFIRM_THRESHOLD (%s) must not exceed MAX_TX_AMOUNT (%s)",
			cfg.ConfirmThreshold, cfg.MaxTxAmount)
	}
	if _, ok := cfg.Tokens.Lookup(cfg.ReferenceCurrency); !ok {
		return fmt.Errorf("reference currency %s not in token registry", cfg.ReferenceCurrency)
	}
	for _, currency := range cfg.IntermediateCurrencies {
		if _, ok := cfg.Tokens.Lookup(currency); !ok {
			return fmt.Errorf("intermediate currency %s not in token registry", currency)
		}
	}
	return nil
}
