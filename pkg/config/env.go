package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// DefaultNetworkID is the network the engine targets by default.
	DefaultNetworkID = CeloMainnetID

	// DefaultRPCURL is the default RPC endpoint for the target network.
	DefaultRPCURL = "https://forno.celo.org"

	// DefaultSwapRouterAddress is the swap venue router used for quoting
	// and swap calldata on both supported networks.
	DefaultSwapRouterAddress = "0xE3D8bd6Aed4F159bc8000a9cD47CffDb95F96121"

	// DefaultWorkerCount defines the default number of monitor workers.
	DefaultWorkerCount = 5

	// DefaultMetricsPort defines the default port for the health and metrics server.
	DefaultMetricsPort = "8080"

	// DefaultReceiptTimeout bounds how long a monitor worker waits for a receipt.
	DefaultReceiptTimeoutSeconds = 60

	// DefaultQuoteTTL is how long a quote may be reused before refresh.
	DefaultQuoteTTLSeconds = 30

	// DefaultSlippagePercent is the bounded slippage margin applied to
	// swap inputs. A policy knob, not a protocol constant.
	DefaultSlippagePercent = "1"

	// DefaultApprovalAmount is the generously sized approval granted to
	// the swap venue, in whole destination-currency units. Oversizing is
	// a deliberate UX trade-off to avoid repeated approval transactions.
	DefaultApprovalAmount = "1000000"

	// DefaultMaxTxAmount is the per-transaction ceiling in the reference currency.
	DefaultMaxTxAmount = "5000"

	// DefaultConfirmThreshold is the amount above which the caller must
	// obtain explicit user confirmation, in the reference currency.
	DefaultConfirmThreshold = "500"

	// DefaultReferenceCurrency is the currency spending limits are denominated in.
	DefaultReferenceCurrency = "cUSD"

	// DefaultIntermediateCurrencies is the configured intermediate set for
	// two-hop route evaluation.
	DefaultIntermediateCurrencies = "cUSD,cEUR,USDC"

	// DefaultKnownVendors is the closed set of vendor names fulfillment
	// dispatches to.
	DefaultKnownVendors = "airtime-ke,data-ke,power-ke"

	// DefaultCircuitBreakerEnabled defines whether the quote venue circuit breaker is enabled.
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of venue failures before the breaker trips.
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the failure window in seconds.
	DefaultCircuitBreakerWindow = 30

	// DefaultCircuitBreakerReset defines the reset timeout in seconds.
	DefaultCircuitBreakerReset = 60
)

// defaultFiatRates are the approximate static rates the spending guard uses
// to convert local fiat amounts into the reference currency for its coarse
// ceiling check. Precision is intentionally not a goal here.
var defaultFiatRates = map[string]string{
	"KES": "0.0077",
	"NGN": "0.00065",
	"GHS": "0.065",
	"UGX": "0.00027",
}

// GetEnvNetworkID returns the target network id from environment variables.
func GetEnvNetworkID() (int, error) {
	networkID := os.Getenv("NETWORK_ID")
	if networkID == "" {
		return DefaultNetworkID, nil
	}

	id, err := strconv.Atoi(networkID)
	if err != nil {
		return 0, fmt.Errorf("invalid NETWORK_ID value: %s, must be an integer", networkID)
	}
	if id != CeloMainnetID && id != CeloAlfajoresID {
		return 0, fmt.Errorf("unsupported NETWORK_ID value: %d", id)
	}
	return id, nil
}

// GetEnvRPCURL returns the chain RPC endpoint from environment variables.
func GetEnvRPCURL() (string, error) {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return DefaultRPCURL, nil
	}

	if _, err := url.ParseRequestURI(rpcURL); err != nil {
		return "", fmt.Errorf("invalid RPC_URL value: %s, must be a valid URL", rpcURL)
	}
	return rpcURL, nil
}

// GetEnvSwapRouterAddress returns the swap venue router address from environment variables.
func GetEnvSwapRouterAddress() (common.Address, error) {
	addr := os.Getenv("SWAP_ROUTER_ADDRESS")
	if addr == "" {
		addr = DefaultSwapRouterAddress
	}

	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid SWAP_ROUTER_ADDRESS value: %s, must be a valid address", addr)
	}
	return common.HexToAddress(addr), nil
}

// GetEnvCollectionAddress returns the fulfillment collection address from
// environment variables. Required: there is no sensible default for the
// address that receives customer funds.
func GetEnvCollectionAddress() (common.Address, error) {
	addr := os.Getenv("COLLECTION_ADDRESS")
	if addr == "" {
		return common.Address{}, fmt.Errorf("COLLECTION_ADDRESS environment variable is required")
	}

	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid COLLECTION_ADDRESS value: %s, must be a valid address", addr)
	}
	return common.HexToAddress(addr), nil
}

// GetEnvIdentityEndpoint returns the identity-lookup service endpoint.
func GetEnvIdentityEndpoint() (string, error) {
	endpoint := os.Getenv("IDENTITY_ENDPOINT")
	if endpoint == "" {
		return "", fmt.Errorf("IDENTITY_ENDPOINT environment variable is required")
	}

	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("invalid IDENTITY_ENDPOINT value: %s, must be a valid URL", endpoint)
	}
	return endpoint, nil
}

// GetEnvVendorEndpoint returns the fulfillment vendor endpoint.
func GetEnvVendorEndpoint() (string, error) {
	endpoint := os.Getenv("VENDOR_ENDPOINT")
	if endpoint == "" {
		return "", fmt.Errorf("VENDOR_ENDPOINT environment variable is required")
	}

	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("invalid VENDOR_ENDPOINT value: %s, must be a valid URL", endpoint)
	}
	return endpoint, nil
}

// GetEnvPostgresDSN returns the record store DSN. Empty means the in-memory
// store, which is only suitable for development.
func GetEnvPostgresDSN() string {
	return os.Getenv("POSTGRES_DSN")
}

// GetEnvWorkerCount returns the number of monitor workers from environment variables.
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvMetricsPort returns the health server port from environment variables.
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvReceiptTimeout returns the bounded receipt wait from environment variables.
func GetEnvReceiptTimeout() (time.Duration, error) {
	timeout := os.Getenv("RECEIPT_TIMEOUT")
	if timeout == "" {
		return DefaultReceiptTimeoutSeconds * time.Second, nil
	}

	parsed, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid RECEIPT_TIMEOUT value: %s, must be a valid duration string", timeout)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("RECEIPT_TIMEOUT must be greater than 0")
	}
	return parsed, nil
}

// GetEnvQuoteTTL returns the quote cache TTL from environment variables.
func GetEnvQuoteTTL() (time.Duration, error) {
	ttl := os.Getenv("QUOTE_TTL")
	if ttl == "" {
		return DefaultQuoteTTLSeconds * time.Second, nil
	}

	parsed, err := time.ParseDuration(ttl)
	if err != nil {
		return 0, fmt.Errorf("invalid QUOTE_TTL value: %s, must be a valid duration string", ttl)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("QUOTE_TTL must be greater than 0")
	}
	return parsed, nil
}

// GetEnvSlippagePercent returns the slippage margin from environment variables.
func GetEnvSlippagePercent() (decimal.Decimal, error) {
	slippage := os.Getenv("SLIPPAGE_PERCENT")
	if slippage == "" {
		slippage = DefaultSlippagePercent
	}

	parsed, err := decimal.NewFromString(slippage)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid SLIPPAGE_PERCENT value: %s, must be a decimal", slippage)
	}
	if parsed.IsNegative() {
		return decimal.Zero, fmt.Errorf("SLIPPAGE_PERCENT must not be negative")
	}
	return parsed, nil
}

// GetEnvApprovalAmount returns the approval sizing from environment variables.
func GetEnvApprovalAmount() (decimal.Decimal, error) {
	amount := os.Getenv("APPROVAL_AMOUNT")
	if amount == "" {
		amount = DefaultApprovalAmount
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid APPROVAL_AMOUNT value: %s, must be a decimal", amount)
	}
	if !parsed.IsPositive() {
		return decimal.Zero, fmt.Errorf("APPROVAL_AMOUNT must be greater than 0")
	}
	return parsed, nil
}

// GetEnvMaxTxAmount returns the per-transaction ceiling from environment variables.
func GetEnvMaxTxAmount() (decimal.Decimal, error) {
	amount := os.Getenv("MAX_TX_AMOUNT")
	if amount == "" {
		amount = DefaultMaxTxAmount
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid MAX_TX_AMOUNT value: %s, must be a decimal", amount)
	}
	if !parsed.IsPositive() {
		return decimal.Zero, fmt.Errorf("MAX_TX_AMOUNT must be greater than 0")
	}
	return parsed, nil
}

// GetEnvConfirmThreshold returns the confirmation threshold from environment variables.
func GetEnvConfirmThreshold() (decimal.Decimal, error) {
	amount := os.Getenv("CONFIRM_THRESHOLD")
	if amount == "" {
		amount = DefaultConfirmThreshold
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid CONFIRM_THRESHOLD value: %s, must be a decimal", amount)
	}
	if parsed.IsNegative() {
		return decimal.Zero, fmt.Errorf("CONFIRM_THRESHOLD must not be negative")
	}
	return parsed, nil
}

// GetEnvIntermediateCurrencies returns the configured intermediate set for
// route evaluation from environment variables.
func GetEnvIntermediateCurrencies() []string {
	raw := os.Getenv("INTERMEDIATE_CURRENCIES")
	if raw == "" {
		raw = DefaultIntermediateCurrencies
	}

	parts := strings.Split(raw, ",")
	currencies := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			currencies = append(currencies, trimmed)
		}
	}
	return currencies
}

// GetEnvKnownVendors returns the set of vendor names the monitor is allowed
// to dispatch fulfillment to. Metadata naming any other vendor fails
// verification.
func GetEnvKnownVendors() []string {
	raw := os.Getenv("KNOWN_VENDORS")
	if raw == "" {
		raw = DefaultKnownVendors
	}

	parts := strings.Split(raw, ",")
	vendors := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			vendors = append(vendors, trimmed)
		}
	}
	return vendors
}

// GetEnvFiatRates returns the static fiat conversion table for the spending
// guard. Entries use the form "KES=0.0077,NGN=0.00065"; unset keys fall back
// to the built-in defaults.
func GetEnvFiatRates() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(defaultFiatRates))
	for currency, rate := range defaultFiatRates {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid built-in fiat rate for %s: %s", currency, rate)
		}
		rates[currency] = parsed
	}

	raw := os.Getenv("FIAT_RATES")
	if raw == "" {
		return rates, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid FIAT_RATES entry: %s, must be CURRENCY=RATE", entry)
		}
		parsed, err := decimal.NewFromString(parts[1])
		if err != nil || !parsed.IsPositive() {
			return nil, fmt.Errorf("invalid FIAT_RATES rate for %s: %s", parts[0], parts[1])
		}
		rates[parts[0]] = parsed
	}
	return rates, nil
}

// GetEnvCircuitBreakerEnabled returns whether the quote venue circuit breaker is enabled.
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables.
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables.
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s, must be a valid duration string", window)
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables.
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s, must be a valid duration string", reset)
	}
	return parsed, nil
}
