package models

import "errors"

// Sentinel errors returned synchronously by the planning pipeline.
// Callers are expected to match on them with errors.Is.
var (
	// ErrInvalidIntent indicates a malformed intent: missing recipient,
	// non-positive amount, unknown currency.
	ErrInvalidIntent = errors.New("invalid payment intent")

	// ErrUnresolvedRecipient indicates the recipient identifier could not
	// be mapped to an on-chain address.
	ErrUnresolvedRecipient = errors.New("recipient could not be resolved")

	// ErrNoRouteAvailable indicates no swap route could be priced between
	// the source and destination currencies.
	ErrNoRouteAvailable = errors.New("no route available")

	// ErrAmountExceedsLimit indicates the amount is above the configured
	// per-transaction ceiling.
	ErrAmountExceedsLimit = errors.New("amount exceeds spending limit")

	// ErrNoLiquidity is reported by the quote source when the venue has no
	// liquidity for a pair. The route optimizer treats it as a skippable
	// condition, not a failure.
	ErrNoLiquidity = errors.New("no liquidity for pair")

	// ErrRouteBuild indicates a priced route could not be turned into
	// calldata. Distinct from ErrNoRouteAvailable: pricing succeeded,
	// encoding did not.
	ErrRouteBuild = errors.New("failed to build route transaction")
)
