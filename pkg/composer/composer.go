// Package composer turns accepted payment intents into staged sequences of
// unsigned transactions for the client-side signer.
package composer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/paystream-hq/payflow/pkg/chainclient"
	"github.com/paystream-hq/payflow/pkg/config"
	"github.com/paystream-hq/payflow/pkg/guard"
	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/models"
)

// swapDeadline bounds how long a produced swap stays valid at the venue.
const swapDeadline = 20 * time.Minute

// Resolver maps recipient identifiers to addresses.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (common.Address, error)
}

// RouteFinder prices the cheapest route delivering an exact output amount.
type RouteFinder interface {
	FindCheapestRoute(ctx context.Context, from, to string, amountOut decimal.Decimal) (*models.RouteComparison, error)
}

// AllowanceReader reads the payer's current approval for the swap venue.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// Composer builds transaction plans. It is stateless; every call prices and
// checks afresh.
type Composer struct {
	resolver   Resolver
	routes     RouteFinder
	allowance  AllowanceReader
	guard      *guard.Guard
	tokens     *config.Registry
	venue      common.Address
	collection common.Address

	slippagePercent decimal.Decimal
	approvalAmount  decimal.Decimal

	logger logger.Logger
}

// New creates a composer.
func New(
	res Resolver,
	routes RouteFinder,
	allowance AllowanceReader,
	g *guard.Guard,
	tokens *config.Registry,
	venue common.Address,
	collection common.Address,
	slippagePercent decimal.Decimal,
	approvalAmount decimal.Decimal,
	log logger.Logger,
) *Composer {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Composer{
		resolver:        res,
		routes:          routes,
		allowance:       allowance,
		guard:           g,
		tokens:          tokens,
		venue:           venue,
		collection:      collection,
		slippagePercent: slippagePercent,
		approvalAmount:  approvalAmount,
		logger:          log,
	}
}

// Compose builds the staged transaction plan for an intent. All failures
// here are synchronous, pre-broadcast rejections: nothing has touched the
// chain yet.
func (c *Composer) Compose(ctx context.Context, intent *models.PaymentIntent, sender common.Address) (*models.TransactionPlan, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	check := c.guard.Check(intent.Amount, intent.DestCurrency)
	if !check.Allowed {
		return nil, fmt.Errorf("%w: %s %s", models.ErrAmountExceedsLimit, intent.Amount, intent.DestCurrency)
	}

	recipient, err := c.recipient(ctx, intent)
	if err != nil {
		return nil, err
	}

	destToken, ok := c.tokens.Lookup(intent.DestCurrency)
	if !ok {
		// Purchases may be denominated in a local fiat currency; those
		// settle on chain in the guard's reference token.
		intent, destToken, err = c.settleFiat(intent)
		if err != nil {
			return nil, err
		}
	}

	if !intent.CrossCurrency() {
		return c.composeDirect(intent, destToken, recipient, check)
	}
	return c.composeCrossCurrency(ctx, intent, destToken, sender, recipient, check)
}

// settleFiat maps a purchase denominated in a local fiat currency onto the
// reference settlement token, using the guard's static rate table. Transfers
// must already be token-denominated.
func (c *Composer) settleFiat(intent *models.PaymentIntent) (*models.PaymentIntent, config.Token, error) {
	if intent.Kind != models.ActionPurchase {
		return nil, config.Token{}, fmt.Errorf("%w: unknown destination currency %s", models.ErrInvalidIntent, intent.DestCurrency)
	}

	rate, ok := c.guard.Rate(intent.DestCurrency)
	if !ok {
		return nil, config.Token{}, fmt.Errorf("%w: unknown destination currency %s", models.ErrInvalidIntent, intent.DestCurrency)
	}

	settlement := c.guard.Reference()
	token, ok := c.tokens.Lookup(settlement)
	if !ok {
		return nil, config.Token{}, fmt.Errorf("settlement currency %s missing from registry", settlement)
	}

	settled := *intent
	settled.Amount = intent.Amount.Mul(rate)
	settled.DestCurrency = settlement

	c.logger.InfoWithComponent(logger.Compose, "Settling %s %s purchase as %s %s",
		intent.Amount, intent.DestCurrency, settled.Amount, settlement)
	return &settled, token, nil
}

// recipient returns the on-chain destination for the intent. Purchases
// always pay the collection address; transfers go through recipient
// resolution.
func (c *Composer) recipient(ctx context.Context, intent *models.PaymentIntent) (common.Address, error) {
	if intent.Kind == models.ActionPurchase {
		return c.collection, nil
	}
	return c.resolver.Resolve(ctx, intent.Recipient)
}

// composeDirect builds a single-step plain transfer plan.
func (c *Composer) composeDirect(intent *models.PaymentIntent, destToken config.Token, recipient common.Address, check guard.Result) (*models.TransactionPlan, error) {
	data, err := chainclient.BuildTransferData(recipient, destToken.ToAtomic(intent.Amount))
	if err != nil {
		return nil, fmt.Errorf("%w: transfer calldata: %v", models.ErrRouteBuild, err)
	}

	c.logger.InfoWithComponent(logger.Compose, "Direct transfer plan: %s %s to %s",
		intent.Amount, intent.DestCurrency, recipient.Hex())

	return &models.TransactionPlan{
		Kind: models.PlanDirect,
		Steps: []models.TxDescriptor{{
			To:          destToken.Address,
			Value:       big.NewInt(0),
			Data:        data,
			FeeCurrency: intent.DestCurrency,
		}},
		RequiresConfirmation: check.RequiresConfirmation,
		SourceAmount:         intent.Amount,
	}, nil
}

// composeCrossCurrency prices the exact source amount for the requested
// destination amount, then builds either an approval plan or the swap
// (plus, for third-party sends, the exact-amount transfer).
func (c *Composer) composeCrossCurrency(
	ctx context.Context,
	intent *models.PaymentIntent,
	destToken config.Token,
	sender, recipient common.Address,
	check guard.Result,
) (*models.TransactionPlan, error) {
	srcToken, ok := c.tokens.Lookup(intent.Source())
	if !ok {
		return nil, fmt.Errorf("%w: unknown source currency %s", models.ErrInvalidIntent, intent.Source())
	}

	// Fixed-output pricing: the recipient's receipt amount must be exact,
	// the payer's debit amount is what varies.
	cmp, err := c.routes.FindCheapestRoute(ctx, intent.Source(), intent.DestCurrency, intent.Amount)
	if err != nil {
		return nil, err
	}

	requiredIn := cmp.Best.AmountIn
	maxIn := requiredIn.Mul(decimal.NewFromInt(100).Add(c.slippagePercent)).Div(decimal.NewFromInt(100))
	maxInAtomic := srcToken.ToAtomic(maxIn)

	current, err := c.allowance.Allowance(ctx, srcToken.Address, sender, c.venue)
	if err != nil {
		return nil, fmt.Errorf("failed to check venue allowance: %v", err)
	}

	if current.Cmp(maxInAtomic) < 0 {
		return c.composeApproval(intent, srcToken, maxIn, check)
	}

	path := make([]common.Address, 0, len(cmp.Best.Path))
	for _, symbol := range cmp.Best.Path {
		token, ok := c.tokens.Lookup(symbol)
		if !ok {
			return nil, fmt.Errorf("route currency %s missing from registry", symbol)
		}
		path = append(path, token.Address)
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	amountOutAtomic := destToken.ToAtomic(intent.Amount)

	// The swap always lands in the payer's own wallet; third-party sends
	// forward the exact destination amount in a second step.
	swapData, err := chainclient.BuildSwapData(amountOutAtomic, maxInAtomic, path, sender, deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: swap calldata: %v", models.ErrRouteBuild, err)
	}

	steps := []models.TxDescriptor{{
		To:          c.venue,
		Value:       big.NewInt(0),
		Data:        swapData,
		FeeCurrency: intent.Source(),
	}}

	kind := models.PlanDirect
	if recipient != sender {
		transferData, err := chainclient.BuildTransferData(recipient, amountOutAtomic)
		if err != nil {
			return nil, fmt.Errorf("%w: transfer calldata: %v", models.ErrRouteBuild, err)
		}
		steps = append(steps, models.TxDescriptor{
			To:          destToken.Address,
			Value:       big.NewInt(0),
			Data:        transferData,
			FeeCurrency: intent.DestCurrency,
		})
		kind = models.PlanSwapThenSend
	}

	c.logger.InfoWithComponent(logger.Compose, "%s plan via %v: %s %s debit for exactly %s %s",
		kind, cmp.Best.Path, requiredIn, intent.Source(), intent.Amount, intent.DestCurrency)

	return &models.TransactionPlan{
		Kind:                 kind,
		Steps:                steps,
		RequiresConfirmation: check.RequiresConfirmation,
		SourceAmount:         requiredIn,
		Route:                cmp.Best.Path,
	}, nil
}

// composeApproval builds a plan containing only the venue approval. The
// approval is sized generously rather than exactly so the payer does not
// re-approve on every payment; that is a UX trade-off, not a correctness
// requirement, and the margin is configurable.
func (c *Composer) composeApproval(intent *models.PaymentIntent, srcToken config.Token, maxIn decimal.Decimal, check guard.Result) (*models.TransactionPlan, error) {
	approval := c.approvalAmount
	if maxIn.GreaterThan(approval) {
		approval = maxIn
	}

	data, err := chainclient.BuildApproveData(c.venue, srcToken.ToAtomic(approval))
	if err != nil {
		return nil, fmt.Errorf("%w: approve calldata: %v", models.ErrRouteBuild, err)
	}

	c.logger.InfoWithComponent(logger.Compose, "Approval plan: %s %s for venue %s",
		approval, intent.Source(), c.venue.Hex())

	return &models.TransactionPlan{
		Kind: models.PlanApproveRequired,
		Steps: []models.TxDescriptor{{
			To:          srcToken.Address,
			Value:       big.NewInt(0),
			Data:        data,
			FeeCurrency: intent.Source(),
		}},
		RequiresConfirmation: check.RequiresConfirmation,
		SourceAmount:         maxIn,
	}, nil
}
