// Package engine is the orchestration entrypoint: it builds transaction
// plans for payment intents and registers broadcast transactions for
// monitoring.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/metrics"
	"github.com/paystream-hq/payflow/pkg/models"
	"github.com/paystream-hq/payflow/pkg/store"
)

// Planner builds a transaction plan for an intent.
type Planner interface {
	Compose(ctx context.Context, intent *models.PaymentIntent, sender common.Address) (*models.TransactionPlan, error)
}

// Enqueuer hands a record to the monitoring pool.
type Enqueuer interface {
	Enqueue(record models.TransactionRecord)
}

// BroadcastRequest registers an already-broadcast transaction for
// monitoring. The caller signs and sends; the engine never holds keys.
type BroadcastRequest struct {
	TxHash   string                      `json:"tx_hash" validate:"required,len=66,startswith=0x"`
	From     string                      `json:"from" validate:"required,eth_addr"`
	To       string                      `json:"to" validate:"required,eth_addr"`
	Amount   string                      `json:"amount" validate:"required"` // atomic units
	Currency string                      `json:"currency" validate:"required"`
	Metadata *models.FulfillmentMetadata `json:"metadata,omitempty"`
}

// BroadcastAck is returned immediately on registration; the terminal status
// arrives asynchronously through the record store.
type BroadcastAck struct {
	ID     string          `json:"id"`
	TxHash string          `json:"tx_hash"`
	Status models.TxStatus `json:"status"`
}

// Service wires planning and monitoring together.
type Service struct {
	planner  Planner
	records  store.Store
	queue    Enqueuer
	validate *validator.Validate
	logger   logger.Logger
}

// New creates the orchestration service.
func New(planner Planner, records store.Store, queue Enqueuer, log logger.Logger) *Service {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Service{
		planner:  planner,
		records:  records,
		queue:    queue,
		validate: validator.New(),
		logger:   log,
	}
}

// BuildPlan validates the intent and composes a transaction plan for sender.
func (s *Service) BuildPlan(ctx context.Context, intent *models.PaymentIntent, sender common.Address) (*models.TransactionPlan, error) {
	start := time.Now()

	plan, err := s.planner.Compose(ctx, intent, sender)
	if err != nil {
		metrics.PlanRejections.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	metrics.PlansBuilt.WithLabelValues(string(plan.Kind)).Inc()
	metrics.PlanBuildTime.Observe(time.Since(start).Seconds())
	s.logger.InfoWithComponent(logger.Engine, "Built %s plan with %d steps for %s %s",
		plan.Kind, len(plan.Steps), intent.Amount, intent.DestCurrency)
	return plan, nil
}

// RegisterBroadcast persists a pending record for the hash and enqueues it
// for monitoring. Returns immediately. Registration is idempotent: a hash
// that is already registered returns the existing record's ack, so callers
// under at-least-once delivery can retry safely.
func (s *Service) RegisterBroadcast(ctx context.Context, req BroadcastRequest) (*BroadcastAck, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidIntent, err)
	}

	now := time.Now().UTC()
	record := models.TransactionRecord{
		ID:          uuid.New().String(),
		TxHash:      req.TxHash,
		From:        req.From,
		To:          req.To,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      models.StatusPending,
		Fulfillment: req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.records.Create(ctx, &record); err != nil {
		if errors.Is(err, store.ErrDuplicateRecord) {
			return s.ackExisting(ctx, req.TxHash)
		}
		return nil, fmt.Errorf("failed to register transaction %s: %v", req.TxHash, err)
	}

	s.queue.Enqueue(record)
	s.logger.InfoWithComponent(logger.Engine, "Registered transaction %s for monitoring", req.TxHash)

	return &BroadcastAck{ID: record.ID, TxHash: record.TxHash, Status: record.Status}, nil
}

// ackExisting acknowledges a retried registration with the stored record.
// A still-pending record is re-enqueued in case the original job was lost;
// the status CAS keeps duplicate jobs harmless.
func (s *Service) ackExisting(ctx context.Context, txHash string) (*BroadcastAck, error) {
	existing, err := s.records.FindByHash(ctx, txHash)
	if err != nil || existing == nil {
		return nil, fmt.Errorf("failed to load existing record for %s: %v", txHash, err)
	}

	if existing.Status == models.StatusPending {
		s.queue.Enqueue(*existing)
	}
	s.logger.InfoWithComponent(logger.Engine, "Transaction %s already registered, status %s", txHash, existing.Status)
	return &BroadcastAck{ID: existing.ID, TxHash: existing.TxHash, Status: existing.Status}, nil
}

// Status returns the current record for a transaction hash, or nil when the
// hash was never registered.
func (s *Service) Status(ctx context.Context, txHash string) (*models.TransactionRecord, error) {
	return s.records.FindByHash(ctx, txHash)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidIntent):
		return "invalid_intent"
	case errors.Is(err, models.ErrUnresolvedRecipient):
		return "unresolved_recipient"
	case errors.Is(err, models.ErrAmountExceedsLimit):
		return "amount_exceeds_limit"
	case errors.Is(err, models.ErrNoRouteAvailable):
		return "no_route"
	case errors.Is(err, models.ErrRouteBuild):
		return "route_build"
	default:
		return "internal"
	}
}
