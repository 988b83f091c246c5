package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paystream-hq/payflow/pkg/chainclient"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/models"
	"github.com/paystream-hq/payflow/pkg/store"
	"github.com/paystream-hq/payflow/pkg/vendor"
)

var (
	testPayer      = common.HexToAddress("0x5E4d3e4D3e4d3E4D3E4d3e4D3E4D3e4d3e4D3E4d")
	testRecipient  = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	testCollection = common.HexToAddress("0xC011ec7107C11eC7107c011eC7107c011Ec71070")
	testHash       = "0x" + fmt.Sprintf("%064x", 1)
)

type mockChain struct {
	receipts map[common.Hash]*types.Receipt
}

func (m *mockChain) WaitForReceipt(_ context.Context, hash common.Hash, _ time.Duration) (*types.Receipt, error) {
	receipt, ok := m.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("timed out waiting for receipt of %s", hash.Hex())
	}
	return receipt, nil
}

type mockVendor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockVendor) Purchase(_ context.Context, _ vendor.PurchaseRequest) (*vendor.PurchaseResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &vendor.PurchaseResult{Success: true, VendorOrderID: "ord-1"}, nil
}

func (m *mockVendor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testTokens(t *testing.T) *config.Registry {
	tokens, err := config.NewRegistry(config.CeloMainnetID)
	require.NoError(t, err)
	return tokens
}

func testMonitor(t *testing.T, chain ChainReader, records store.Store, v vendor.Purchaser, workers int) *Monitor {
	return New(chain, records, v, testTokens(t), testCollection, []string{"airtime-ke"}, workers, time.Second, nil)
}

// transferLog builds an ERC20 Transfer log for a receipt.
func transferLog(token, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			chainclient.TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}
}

// pendingRecord stores a pending record. Records carrying fulfillment
// metadata pay the collection address, plain transfers pay the recipient.
func pendingRecord(t *testing.T, records store.Store, fulfillment *models.FulfillmentMetadata) models.TransactionRecord {
	to := testRecipient
	if fulfillment != nil {
		to = testCollection
	}
	record := models.TransactionRecord{
		ID:          "rec-1",
		TxHash:      testHash,
		From:        testPayer.Hex(),
		To:          to.Hex(),
		Amount:      "1000",
		Currency:    "cUSD",
		Status:      models.StatusPending,
		Fulfillment: fulfillment,
	}
	require.NoError(t, records.Create(context.Background(), &record))
	return record
}

func statusOf(t *testing.T, records store.Store, txHash string) models.TxStatus {
	found, err := records.FindByHash(context.Background(), txHash)
	require.NoError(t, err)
	require.NotNil(t, found)
	return found.Status
}

func TestProcessRecordRevertedReceipt(t *testing.T) {
	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {Status: types.ReceiptStatusFailed},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke"})

	require.NoError(t, m.processRecord(context.Background(), record))

	assert.Equal(t, models.StatusFailed, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordPlainTransferSuccess(t *testing.T) {
	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {Status: types.ReceiptStatusSuccessful},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, nil)

	require.NoError(t, m.processRecord(context.Background(), record))

	// No fulfillment metadata: the record settles at success and the
	// vendor is never involved.
	assert.Equal(t, models.StatusSuccess, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordDeliversFulfillment(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testCollection, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke", PhoneNumber: "+254712345678"})

	require.NoError(t, m.processRecord(context.Background(), record))

	assert.Equal(t, models.StatusSuccessDelivered, statusOf(t, records, testHash))
	assert.Equal(t, 1, v.callCount())
}

func TestProcessRecordSelfPaymentNotFulfilled(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testPayer, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)

	// A registered destination other than the collection address must never
	// reach the vendor, even with a full-amount transfer in the receipt.
	record := models.TransactionRecord{
		ID:          "rec-1",
		TxHash:      testHash,
		From:        testPayer.Hex(),
		To:          testPayer.Hex(),
		Amount:      "1000",
		Currency:    "cUSD",
		Status:      models.StatusPending,
		Fulfillment: &models.FulfillmentMetadata{Vendor: "airtime-ke"},
	}
	require.NoError(t, records.Create(context.Background(), &record))

	require.NoError(t, m.processRecord(context.Background(), record))

	assert.Equal(t, models.StatusFailedVerification, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordUnknownVendorNotFulfilled(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testCollection, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "mystery-vendor"})

	require.NoError(t, m.processRecord(context.Background(), record))

	assert.Equal(t, models.StatusFailedVerification, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordUnderpaidTransfer(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testCollection, big.NewInt(999)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke"})

	require.NoError(t, m.processRecord(context.Background(), record))

	// Short payment: flagged for reconciliation, vendor untouched.
	assert.Equal(t, models.StatusFailedVerification, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordWrongTokenTransfer(t *testing.T) {
	tokens := testTokens(t)
	cEUR, _ := tokens.Lookup("cEUR")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cEUR.Address, testPayer, testCollection, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke"})

	require.NoError(t, m.processRecord(context.Background(), record))

	assert.Equal(t, models.StatusFailedVerification, statusOf(t, records, testHash))
	assert.Equal(t, 0, v.callCount())
}

func TestProcessRecordVendorFailure(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{err: errors.New("vendor returned status 500")}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testCollection, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke"})

	require.NoError(t, m.processRecord(context.Background(), record))

	// Funds arrived but delivery failed: manual reconciliation, no retry.
	assert.Equal(t, models.StatusFailedServiceError, statusOf(t, records, testHash))
	assert.Equal(t, 1, v.callCount())
}

func TestProcessRecordAtMostOnceFulfillment(t *testing.T) {
	tokens := testTokens(t)
	cUSD, _ := tokens.Lookup("cUSD")

	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				transferLog(cUSD.Address, testPayer, testCollection, big.NewInt(1000)),
			},
		},
	}}

	m := testMonitor(t, chain, records, v, 2)
	record := pendingRecord(t, records, &models.FulfillmentMetadata{Vendor: "airtime-ke"})

	// The same record processed concurrently must call the vendor once:
	// only the worker that wins the pending -> success transition proceeds.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.processRecord(context.Background(), record)
		}()
	}
	wg.Wait()

	assert.Equal(t, models.StatusSuccessDelivered, statusOf(t, records, testHash))
	assert.Equal(t, 1, v.callCount())
}

func TestProcessRecordReceiptTimeoutLeavesPending(t *testing.T) {
	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{}}

	m := testMonitor(t, chain, records, v, 1)
	record := pendingRecord(t, records, nil)

	err := m.processRecord(context.Background(), record)
	require.Error(t, err)

	// A missing receipt is a monitoring failure: the record stays pending
	// so the recovery sweep can pick it up later.
	assert.Equal(t, models.StatusPending, statusOf(t, records, testHash))
}

func TestRecoverPendingResumesRecords(t *testing.T) {
	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(testHash): {Status: types.ReceiptStatusSuccessful},
	}}

	m := testMonitor(t, chain, records, v, 1)
	pendingRecord(t, records, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)

	// The sweep runs asynchronously; wait for the record to settle.
	require.Eventually(t, func() bool {
		return statusOf(t, records, testHash) == models.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	m.Stop()
}

func TestEnqueueAfterStopDropsJob(t *testing.T) {
	records := store.NewMemoryStore()
	v := &mockVendor{}
	chain := &mockChain{receipts: map[common.Hash]*types.Receipt{}}

	m := testMonitor(t, chain, records, v, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Stop()

	// Registrations racing shutdown must not panic on the closed queue;
	// the record stays pending for the next start's recovery sweep.
	record := pendingRecord(t, records, nil)
	assert.NotPanics(t, func() { m.Enqueue(record) })
	assert.Equal(t, models.StatusPending, statusOf(t, records, testHash))
}
