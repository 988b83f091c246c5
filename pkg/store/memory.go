package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paystream-hq/payflow/pkg/models"
)

// MemoryStore is an in-process Store for tests and development. Not
// suitable for production: records do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.TransactionRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.TransactionRecord),
	}
}

func (s *MemoryStore) Create(_ context.Context, record *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.TxHash]; exists {
		return fmt.Errorf("%w for hash %s", ErrDuplicateRecord, record.TxHash)
	}

	now := time.Now()
	clone := *record
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.records[record.TxHash] = &clone
	return nil
}

func (s *MemoryStore) FindByHash(_ context.Context, txHash string) (*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[txHash]
	if !exists {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, txHash string, status models.TxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[txHash]
	if !exists {
		return fmt.Errorf("no record for hash %s", txHash)
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, txHash string, from, to models.TxStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[txHash]
	if !exists {
		return false, fmt.Errorf("no record for hash %s", txHash)
	}
	if record.Status != from {
		return false, nil
	}
	record.Status = to
	record.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status models.TxStatus) ([]*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*models.TransactionRecord
	for _, record := range s.records {
		if record.Status == status {
			clone := *record
			records = append(records, &clone)
		}
	}
	return records, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
