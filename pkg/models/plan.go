package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PlanKind tags a transaction plan with its shape.
type PlanKind string

const (
	// PlanDirect is a single transaction: a plain transfer, or a swap that
	// lands in the payer's own wallet.
	PlanDirect PlanKind = "DIRECT"
	// PlanApproveRequired contains only an approval transaction; the
	// caller must re-request a plan once the approval is mined.
	PlanApproveRequired PlanKind = "APPROVE_REQUIRED"
	// PlanSwapThenSend is a swap into the payer's wallet followed by an
	// exact-amount transfer to a third-party recipient.
	PlanSwapThenSend PlanKind = "SWAP_THEN_SEND"
)

// TxDescriptor is one unsigned transaction for the client-side signer.
type TxDescriptor struct {
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  []byte         `json:"data"`

	// FeeCurrency hints which token the signer should pay gas in, for
	// chains that support non-native fee currencies. Empty means native.
	FeeCurrency string `json:"fee_currency,omitempty"`
}

// TransactionPlan is the ordered sequence of transactions that realizes one
// payment intent. Plans are returned to the caller for signing and are not
// persisted.
type TransactionPlan struct {
	Kind  PlanKind       `json:"kind"`
	Steps []TxDescriptor `json:"steps"`

	// RequiresConfirmation is advisory: the amount is above the
	// confirmation threshold and the caller's UI must obtain explicit user
	// confirmation before submitting for signing. It is not an
	// enforcement gate.
	RequiresConfirmation bool `json:"requires_confirmation"`

	// SourceAmount is the estimated payer debit in the source currency.
	// For cross-currency plans this is the fixed-output quote result; for
	// same-currency plans it equals the intent amount.
	SourceAmount decimal.Decimal `json:"source_amount"`

	// Route is the currency path the plan prices through, when a swap is
	// involved.
	Route []string `json:"route,omitempty"`
}
