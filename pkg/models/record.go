package models

import (
	"time"
)

// TxStatus is the lifecycle status of a broadcast transaction.
// pending -> {success, failed}; from success, records carrying fulfillment
// metadata may reach {success_delivered, failed_verification,
// failed_service_error}. Every status except pending and success-with-
// metadata-still-in-flight is terminal.
type TxStatus string

const (
	StatusPending TxStatus = "pending"
	StatusSuccess TxStatus = "success"
	StatusFailed  TxStatus = "failed"

	// StatusSuccessDelivered: payment verified on chain and the vendor
	// confirmed delivery.
	StatusSuccessDelivered TxStatus = "success_delivered"

	// StatusFailedVerification: the receipt succeeded but the expected
	// value transfer is absent or short. The vendor was never called.
	StatusFailedVerification TxStatus = "failed_verification"

	// StatusFailedServiceError: funds were received but the vendor call
	// raised. Requires manual reconciliation, never an automatic retry.
	StatusFailedServiceError TxStatus = "failed_service_error"
)

// Terminal reports whether no further transition can occur from s.
func (s TxStatus) Terminal() bool {
	switch s {
	case StatusFailed, StatusSuccessDelivered, StatusFailedVerification, StatusFailedServiceError:
		return true
	}
	return false
}

// TransactionRecord tracks one broadcast transaction from registration to a
// terminal status. The record store owns the authoritative copy; the engine
// never holds state across a restart.
type TransactionRecord struct {
	ID       string `json:"id"`
	TxHash   string `json:"tx_hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"` // atomic units, decimal string
	Currency string `json:"currency"`

	Status      TxStatus             `json:"status"`
	Fulfillment *FulfillmentMetadata `json:"fulfillment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
