package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ActionKind identifies what a payment intent is asking for.
type ActionKind string

const (
	// ActionTransfer is a plain value transfer to a recipient.
	ActionTransfer ActionKind = "transfer"
	// ActionPurchase is a payment to the collection address that triggers
	// an off-chain fulfillment (airtime, bill) once funds are verified.
	ActionPurchase ActionKind = "purchase"
)

// FulfillmentMetadata carries everything the fulfillment vendor needs to
// deliver the off-chain service once payment is verified on chain.
type FulfillmentMetadata struct {
	Vendor      string `json:"vendor" validate:"required"`
	PhoneNumber string `json:"phone_number,omitempty"`
	BillerCode  string `json:"biller_code,omitempty"`
	Package     string `json:"package,omitempty"`
}

// PaymentIntent is the structured request the engine plans for. It is
// immutable once accepted into the pipeline and discarded after a plan is
// produced.
type PaymentIntent struct {
	Kind ActionKind `json:"kind" validate:"required,oneof=transfer purchase"`

	// Recipient is either a hex address or a phone-like identifier.
	Recipient string `json:"recipient" validate:"required"`

	// Amount is the exact amount the recipient must receive, denominated
	// in DestCurrency.
	Amount       decimal.Decimal `json:"amount"`
	DestCurrency string          `json:"dest_currency" validate:"required"`

	// SourceCurrency is what the payer spends. Empty means same as
	// DestCurrency.
	SourceCurrency string `json:"source_currency,omitempty"`

	Fulfillment *FulfillmentMetadata `json:"fulfillment,omitempty"`
}

var intentValidator = validator.New()

// Validate checks structural validity of the intent. All failures map to
// ErrInvalidIntent so callers can reject them uniformly.
func (i *PaymentIntent) Validate() error {
	if err := intentValidator.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if !i.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidIntent, i.Amount)
	}
	if i.Kind == ActionPurchase && i.Fulfillment == nil {
		return fmt.Errorf("%w: purchase intent requires fulfillment metadata", ErrInvalidIntent)
	}
	return nil
}

// Source returns the currency the payer spends, defaulting to the
// destination currency.
func (i *PaymentIntent) Source() string {
	if i.SourceCurrency == "" {
		return i.DestCurrency
	}
	return i.SourceCurrency
}

// CrossCurrency reports whether fulfilling the intent requires a swap.
func (i *PaymentIntent) CrossCurrency() bool {
	return i.Source() != i.DestCurrency
}
