package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paystream-hq/payflow/pkg/engine"
	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/models"
)

// Orchestrator is the engine surface exposed over the operational API.
type Orchestrator interface {
	BuildPlan(ctx context.Context, intent *models.PaymentIntent, sender common.Address) (*models.TransactionPlan, error)
	RegisterBroadcast(ctx context.Context, req engine.BroadcastRequest) (*engine.BroadcastAck, error)
	Status(ctx context.Context, txHash string) (*models.TransactionRecord, error)
}

// planRequest wraps an intent with the sender the plan is built for.
type planRequest struct {
	Sender string                `json:"sender"`
	Intent *models.PaymentIntent `json:"intent"`
}

// registerAPIHandlers mounts the orchestration endpoints next to the health
// endpoints. These serve the operator and integrating backends, not end
// users.
func (s *Server) registerAPIHandlers(orchestrator Orchestrator) {
	http.HandleFunc("/v1/plans", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req planRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Intent == nil || !common.IsHexAddress(req.Sender) {
			s.writeError(w, http.StatusBadRequest, "sender and intent are required")
			return
		}

		plan, err := orchestrator.BuildPlan(r.Context(), req.Intent, common.HexToAddress(req.Sender))
		if err != nil {
			s.writeError(w, planErrorStatus(err), err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, plan)
	})

	http.HandleFunc("/v1/broadcasts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req engine.BroadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ack, err := orchestrator.RegisterBroadcast(r.Context(), req)
		if err != nil {
			if errors.Is(err, models.ErrInvalidIntent) {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, ack)
	})

	http.HandleFunc("/v1/broadcasts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		txHash := strings.TrimPrefix(r.URL.Path, "/v1/broadcasts/")
		record, err := orchestrator.Status(r.Context(), txHash)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			s.writeError(w, http.StatusNotFound, "unknown transaction hash")
			return
		}
		s.writeJSON(w, http.StatusOK, record)
	})
}

func planErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidIntent),
		errors.Is(err, models.ErrUnresolvedRecipient),
		errors.Is(err, models.ErrAmountExceedsLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNoRouteAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorWithComponent(logger.Health, "Error encoding response JSON: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
