// Package monitor drives broadcast transactions to a terminal status: it
// waits for receipts, verifies on-chain payment, and triggers off-chain
// fulfillment at most once per transaction.
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/paystream-hq/payflow/pkg/chainclient"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/metrics"
	"github.com/paystream-hq/payflow/pkg/models"
	"github.com/paystream-hq/payflow/pkg/store"
	"github.com/paystream-hq/payflow/pkg/vendor"
)

// ChainReader is the chain capability the monitor needs.
type ChainReader interface {
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// Monitor runs a worker pool over pending transaction records.
type Monitor struct {
	chain          ChainReader
	records        store.Store
	purchaser      vendor.Purchaser
	tokens         *config.Registry
	collection     common.Address
	vendors        map[string]bool
	workers        int
	receiptTimeout time.Duration
	jobs           chan models.TransactionRecord
	wg             sync.WaitGroup
	logger         logger.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a monitor. workers goroutines consume the job queue once
// Start is called. collection is the only address fulfillment payments are
// accepted at; knownVendors is the closed set of vendor names the monitor
// will dispatch to.
func New(
	chain ChainReader,
	records store.Store,
	purchaser vendor.Purchaser,
	tokens *config.Registry,
	collection common.Address,
	knownVendors []string,
	workers int,
	receiptTimeout time.Duration,
	log logger.Logger,
) *Monitor {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	vendors := make(map[string]bool, len(knownVendors))
	for _, name := range knownVendors {
		vendors[name] = true
	}
	return &Monitor{
		chain:          chain,
		records:        records,
		purchaser:      purchaser,
		tokens:         tokens,
		collection:     collection,
		vendors:        vendors,
		workers:        workers,
		receiptTimeout: receiptTimeout,
		jobs:           make(chan models.TransactionRecord, 100),
		logger:         log,
	}
}

// Start launches the worker pool and the recovery sweep. It returns once the
// workers are running; Stop blocks until in-flight jobs drain.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.InfoWithComponent(logger.Monitor, "Starting %d monitor workers", m.workers)
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx, i)
	}

	go m.recoverPending(ctx)
}

// Stop closes the queue and waits for workers to finish their current jobs.
// Stop waits for in-flight Enqueue calls before closing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()
	m.wg.Wait()
}

// Enqueue hands a record to the worker pool. It blocks if the queue is full,
// which backpressures the registration endpoint rather than dropping work.
// After Stop the record is dropped; it stays pending in the store and the
// recovery sweep picks it up on the next start.
func (m *Monitor) Enqueue(record models.TransactionRecord) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.logger.NoticeWithComponent(logger.Monitor, "Monitor stopped, dropping job for %s", record.TxHash)
		return
	}
	metrics.MonitorQueueDepth.Inc()
	m.jobs <- record
}

func (m *Monitor) worker(ctx context.Context, id int) {
	defer m.wg.Done()
	m.logger.DebugWithComponent(logger.Monitor, "Worker %d started", id)

	for record := range m.jobs {
		metrics.MonitorQueueDepth.Dec()
		if err := m.processRecord(ctx, record); err != nil {
			m.logger.ErrorWithComponent(logger.Monitor, "Worker %d: record %s: %v", id, record.TxHash, err)
		}
	}
	m.logger.DebugWithComponent(logger.Monitor, "Worker %d shutting down", id)
}

// recoverPending re-enqueues records left pending by a previous run. Runs
// once at startup; records the monitor itself leaves pending (receipt
// timeouts) are picked up on the next restart.
func (m *Monitor) recoverPending(ctx context.Context) {
	pending, err := m.records.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		m.logger.ErrorWithComponent(logger.Monitor, "Recovery sweep failed: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	m.logger.NoticeWithComponent(logger.Monitor, "Recovering %d pending records", len(pending))
	for _, record := range pending {
		metrics.RecoveredRecords.Inc()
		m.Enqueue(*record)
	}
}

// processRecord walks one record through the status machine. The CAS on
// pending -> success makes the vendor call happen at most once even when the
// same hash is enqueued twice.
func (m *Monitor) processRecord(ctx context.Context, record models.TransactionRecord) error {
	hash := common.HexToHash(record.TxHash)

	waitStart := time.Now()
	receipt, err := m.chain.WaitForReceipt(ctx, hash, m.receiptTimeout)
	metrics.ReceiptWaitTime.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		// A missing receipt is a monitoring failure, not a transaction
		// failure. The record stays pending for the recovery sweep.
		metrics.MonitorOutcomes.WithLabelValues("receipt_timeout").Inc()
		return fmt.Errorf("receipt wait failed: %v", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return m.finalize(ctx, record.TxHash, models.StatusPending, models.StatusFailed)
	}

	advanced, err := m.records.TransitionStatus(ctx, record.TxHash, models.StatusPending, models.StatusSuccess)
	if err != nil {
		return fmt.Errorf("transition to success failed: %v", err)
	}
	if !advanced {
		// Another worker already owns this record.
		m.logger.DebugWithComponent(logger.Monitor, "Record %s already claimed", record.TxHash)
		return nil
	}

	if record.Fulfillment == nil {
		metrics.MonitorOutcomes.WithLabelValues(string(models.StatusSuccess)).Inc()
		m.logger.InfoWithComponent(logger.Monitor, "Transaction %s confirmed", record.TxHash)
		return nil
	}

	if reason := m.fulfillmentEligible(record); reason != "" {
		m.logger.ErrorWithComponent(logger.Monitor, "Transaction %s rejected for fulfillment: %s", record.TxHash, reason)
		return m.finalize(ctx, record.TxHash, models.StatusSuccess, models.StatusFailedVerification)
	}

	if !m.paymentVerified(receipt, record) {
		m.logger.ErrorWithComponent(logger.Monitor, "Transaction %s confirmed but expected payment not found", record.TxHash)
		return m.finalize(ctx, record.TxHash, models.StatusSuccess, models.StatusFailedVerification)
	}

	return m.fulfill(ctx, record)
}

// fulfillmentEligible gates fulfillment on the registered destination being
// the collection address and the metadata naming a known vendor. Anything
// else is not a payment to us, no matter what the receipt shows.
func (m *Monitor) fulfillmentEligible(record models.TransactionRecord) string {
	if common.HexToAddress(record.To) != m.collection {
		return fmt.Sprintf("destination %s is not the collection address", record.To)
	}
	if !m.vendors[record.Fulfillment.Vendor] {
		return fmt.Sprintf("unknown vendor %q", record.Fulfillment.Vendor)
	}
	return ""
}

// paymentVerified scans the receipt logs for an ERC20 transfer of the
// expected token to the collection address covering the expected amount.
func (m *Monitor) paymentVerified(receipt *types.Receipt, record models.TransactionRecord) bool {
	token, ok := m.tokens.Lookup(record.Currency)
	if !ok {
		m.logger.ErrorWithComponent(logger.Monitor, "Unknown currency %s on record %s", record.Currency, record.TxHash)
		return false
	}

	expected, ok := new(big.Int).SetString(record.Amount, 10)
	if !ok {
		m.logger.ErrorWithComponent(logger.Monitor, "Invalid amount %s on record %s", record.Amount, record.TxHash)
		return false
	}
	for _, l := range receipt.Logs {
		event, ok := chainclient.ParseTransferLog(l)
		if !ok {
			continue
		}
		if event.Token != token.Address || event.To != m.collection {
			continue
		}
		if event.Value.Cmp(expected) >= 0 {
			return true
		}
		m.logger.DebugWithComponent(logger.Monitor, "Transfer on %s short: got %s, want %s",
			record.TxHash, event.Value.String(), expected.String())
	}
	return false
}

// fulfill calls the vendor exactly once and records the outcome. A failed
// vendor call after verified payment is flagged for manual reconciliation,
// never retried.
func (m *Monitor) fulfill(ctx context.Context, record models.TransactionRecord) error {
	meta := record.Fulfillment
	result, err := m.purchaser.Purchase(ctx, vendor.PurchaseRequest{
		Vendor:         meta.Vendor,
		PhoneNumber:    meta.PhoneNumber,
		BillerCode:     meta.BillerCode,
		Package:        meta.Package,
		Amount:         record.Amount,
		Currency:       record.Currency,
		IdempotencyKey: record.TxHash,
	})
	if err != nil {
		metrics.VendorCalls.WithLabelValues("error").Inc()
		m.logger.ErrorWithComponent(logger.Monitor, "Vendor call for %s failed: %v", record.TxHash, err)
		return m.finalize(ctx, record.TxHash, models.StatusSuccess, models.StatusFailedServiceError)
	}

	metrics.VendorCalls.WithLabelValues("success").Inc()
	m.logger.InfoWithComponent(logger.Monitor, "Fulfillment for %s delivered, vendor order %s",
		record.TxHash, result.VendorOrderID)
	return m.finalize(ctx, record.TxHash, models.StatusSuccess, models.StatusSuccessDelivered)
}

func (m *Monitor) finalize(ctx context.Context, txHash string, from, to models.TxStatus) error {
	advanced, err := m.records.TransitionStatus(ctx, txHash, from, to)
	if err != nil {
		return fmt.Errorf("transition %s -> %s failed: %v", from, to, err)
	}
	if advanced {
		metrics.MonitorOutcomes.WithLabelValues(string(to)).Inc()
	}
	return nil
}
