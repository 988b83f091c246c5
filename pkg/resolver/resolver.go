// Package resolver turns user-supplied recipient identifiers into canonical
// on-chain addresses.
package resolver

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/models"
)

// Lookup is the identity collaborator the resolver delegates to for
// identifiers that are not already addresses. The boolean reports whether a
// mapping exists.
type Lookup interface {
	Resolve(ctx context.Context, identifier string) (common.Address, bool, error)
}

// Resolver resolves recipient identifiers. It holds no cache: callers that
// need caching wrap it.
type Resolver struct {
	lookup Lookup
	logger logger.Logger
}

// New creates a resolver delegating to the given identity lookup.
func New(lookup Lookup, log logger.Logger) *Resolver {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Resolver{
		lookup: lookup,
		logger: log,
	}
}

// Resolve returns the canonical address for an identifier. Identifiers that
// already match the address shape pass through without an external call.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (common.Address, error) {
	if identifier == "" {
		return common.Address{}, fmt.Errorf("%w: empty identifier", models.ErrUnresolvedRecipient)
	}

	if common.IsHexAddress(identifier) {
		return common.HexToAddress(identifier), nil
	}

	addr, found, err := r.lookup.Resolve(ctx, identifier)
	if err != nil {
		return common.Address{}, fmt.Errorf("identity lookup failed for %q: %v", identifier, err)
	}
	if !found {
		return common.Address{}, fmt.Errorf("%w: %q", models.ErrUnresolvedRecipient, identifier)
	}

	r.logger.DebugWithComponent(logger.Resolve, "Resolved %q to %s", identifier, addr.Hex())
	return addr, nil
}
