package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/toolgate/toolgate/internal/domain"
	"github.com/toolgate/toolgate/policy"
)

// Propose registers a model-proposed tool invocation and returns its stable
// call identifier. The record lands in pending unless policy blocks it or
// allows immediate execution. Proposing an existing call_id again is a
// no-op.
func (s *Service) Propose(ctx context.Context, req domain.ProposeRequest) (*domain.ProposeResponse, error) {
	if req.ToolName == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "tool_name is required")
	}

	callID := req.CallID
	if callID == "" {
		callID = "tc_" + uuid.New().String()
	}

	now := time.Now()
	rec := domain.ToolCallRecord{
		CallID:    callID,
		SessionID: req.SessionID,
		ToolName:  req.ToolName,
		Params:    req.Params,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The ledger write happens first so the proposal is visible to the
	// approval path before the durable write lands.
	s.ledger.Register(rec)

	created, err := s.store.CreateToolCall(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to persist tool call: %w", err)
	}
	if !created {
		existing, err := s.store.GetToolCall(ctx, callID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing tool call: %w", err)
		}
		return &domain.ProposeResponse{CallID: callID, Status: existing.Status, Result: existing.Result}, nil
	}

	_ = s.recordEvent(ctx, callID, domain.EventTypeProposed, map[string]interface{}{
		"tool_name":  req.ToolName,
		"session_id": req.SessionID,
	})

	decision, reason, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
		"tool_name":  req.ToolName,
		"session_id": req.SessionID,
		"args":       req.Params.Map(),
	})
	if err != nil {
		// Fail closed: an unevaluable policy means a human decides.
		log.Printf("WARN: policy evaluation failed for %s: %v", callID, err)
		decision, reason = policy.DecisionRequireApproval, "policy evaluation failed"
	}

	_ = s.recordEvent(ctx, callID, domain.EventTypePolicyDecision, map[string]interface{}{
		"decision": decision,
		"reason":   reason,
	})

	switch decision {
	case policy.DecisionBlock:
		if _, err := s.store.TransitionToolCall(ctx, callID,
			[]domain.Status{domain.StatusPending}, domain.StatusCancelled); err != nil {
			return nil, fmt.Errorf("failed to cancel blocked tool call: %w", err)
		}
		s.ledger.Remove(callID)
		return &domain.ProposeResponse{CallID: callID, Status: domain.StatusCancelled}, nil

	case policy.DecisionAllow:
		res, err := s.approveAndExecute(ctx, &rec, nil, req.SessionID)
		if err != nil {
			log.Printf("WARN: auto-approved call %s failed: %v", callID, err)
			status := domain.StatusError
			if current, gerr := s.store.GetToolCall(ctx, callID); gerr == nil && current != nil {
				status = current.Status
			}
			return &domain.ProposeResponse{CallID: callID, Status: status}, nil
		}
		return &domain.ProposeResponse{CallID: callID, Status: domain.StatusCompleted, Result: res.Result}, nil
	}

	_ = s.recordEvent(ctx, callID, domain.EventTypeApprovalRequired, map[string]interface{}{
		"tool_name": req.ToolName,
	})
	s.notify(ctx, map[string]interface{}{
		"type":       "approval_required",
		"ts":         now.UnixMilli(),
		"call_id":    callID,
		"session_id": req.SessionID,
		"tool_name":  req.ToolName,
		"args":       req.Params.Map(),
	})

	return &domain.ProposeResponse{CallID: callID, Status: domain.StatusPending}, nil
}
