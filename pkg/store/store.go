// Package store persists transaction records. The store is the only shared
// mutable resource in the engine and the source of truth across restarts,
// so implementations must provide per-record atomic status transitions.
package store

import (
	"context"
	"errors"

	"github.com/paystream-hq/payflow/pkg/models"
)

// ErrDuplicateRecord is returned by Create when a record already exists for
// the transaction hash. Callers treat it as "already monitoring" and return
// the existing record instead of failing.
var ErrDuplicateRecord = errors.New("record already exists")

// Store is the record store contract the engine requires.
type Store interface {
	// Create persists a new record. Creating a record for a hash that
	// already exists returns ErrDuplicateRecord.
	Create(ctx context.Context, record *models.TransactionRecord) error

	// FindByHash returns the record for a transaction hash, or nil when
	// none exists.
	FindByHash(ctx context.Context, txHash string) (*models.TransactionRecord, error)

	// UpdateStatus sets the record's status unconditionally.
	UpdateStatus(ctx context.Context, txHash string, status models.TxStatus) error

	// TransitionStatus atomically moves the record from one status to
	// another. Returns false without error when the record is not in the
	// expected from-status; the losing caller must not proceed. This is
	// the gate that keeps fulfillment at-most-once.
	TransitionStatus(ctx context.Context, txHash string, from, to models.TxStatus) (bool, error)

	// ListByStatus returns all records currently in the given status.
	// Used by the recovery sweep to resume monitoring after a restart.
	ListByStatus(ctx context.Context, status models.TxStatus) ([]*models.TransactionRecord, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
