package service

import (
	"context"
	"fmt"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
)

// Decide applies a human approval or cancellation to a tool call. Approval
// transforms the parameters, executes the call synchronously and persists
// the normalized outcome; the caller's connection stays open for the full
// remote call, bounded by the category timeout.
func (s *Service) Decide(ctx context.Context, callID string, req domain.DecisionRequest) (*domain.DecisionResponse, error) {
	rec, err := s.reconcile(ctx, callID)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, domain.NewError(domain.ErrCodeConflict,
			"call %s is already %s", callID, rec.Status)
	}

	switch req.Action {
	case domain.ActionCancel:
		return s.cancel(ctx, rec)
	case domain.ActionApprove:
		_ = s.recordEvent(ctx, callID, domain.EventTypeApprovalDecision, map[string]interface{}{
			"action": domain.ActionApprove,
		})
		return s.approveAndExecute(ctx, rec, req.Params, req.SessionID)
	default:
		return nil, domain.NewError(domain.ErrCodeValidation,
			"action must be %q or %q", domain.ActionApprove, domain.ActionCancel)
	}
}

// reconcile loads the record, consulting the ledger for proposals the
// durable store has not seen yet. The store always wins on conflict.
func (s *Service) reconcile(ctx context.Context, callID string) (*domain.ToolCallRecord, error) {
	rec, err := s.store.GetToolCall(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool call: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	entry, ok := s.ledger.Get(callID)
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound, "unknown call %s", callID)
	}

	// The proposal only reached the in-process mirror. Persist it so the
	// rest of the pipeline can use conditional writes against the store.
	mirror := entry.Record
	if _, err := s.store.CreateToolCall(ctx, &mirror); err != nil {
		return nil, fmt.Errorf("failed to persist ledger record: %w", err)
	}
	return &mirror, nil
}

func (s *Service) cancel(ctx context.Context, rec *domain.ToolCallRecord) (*domain.DecisionResponse, error) {
	ok, err := s.store.TransitionToolCall(ctx, rec.CallID,
		[]domain.Status{domain.StatusPending, domain.StatusApproved}, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel tool call: %w", err)
	}
	if !ok {
		return nil, domain.NewError(domain.ErrCodeConflict,
			"call %s was already decided", rec.CallID)
	}
	s.ledger.Remove(rec.CallID)

	_ = s.recordEvent(ctx, rec.CallID, domain.EventTypeApprovalDecision, map[string]interface{}{
		"action": domain.ActionCancel,
	})

	return &domain.DecisionResponse{Success: true, Cancelled: true, CallID: rec.CallID}, nil
}

// approveAndExecute finalizes parameters, wins the pending→approved
// transition (or loses with Conflict), executes the call and persists the
// terminal state.
func (s *Service) approveAndExecute(ctx context.Context, rec *domain.ToolCallRecord, override *domain.Params, sessionID string) (*domain.DecisionResponse, error) {
	if sessionID == "" {
		sessionID = rec.SessionID
	}

	params := rec.Params.Clone()
	if override != nil {
		for _, k := range override.Keys() {
			v, _ := override.Get(k)
			params.Set(k, v)
		}
	}

	// Transformation failures (bad media references, malformed data URIs)
	// leave the record pending so the caller can correct and resubmit.
	finalParams, err := s.transformer.Transform(ctx, rec.ToolName, params, sessionID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.TransitionToolCall(ctx, rec.CallID,
		[]domain.Status{domain.StatusPending}, domain.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to approve tool call: %w", err)
	}
	if !ok {
		// A concurrent decision won the conditional write.
		return nil, domain.NewError(domain.ErrCodeConflict,
			"call %s was already decided", rec.CallID)
	}
	s.ledger.UpdateStatus(rec.CallID, domain.StatusApproved)

	if err := s.store.UpdateToolCallParams(ctx, rec.CallID, finalParams); err != nil {
		return nil, fmt.Errorf("failed to persist transformed params: %w", err)
	}

	ok, err = s.store.TransitionToolCall(ctx, rec.CallID,
		[]domain.Status{domain.StatusApproved}, domain.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to start tool call: %w", err)
	}
	if !ok {
		return nil, domain.NewError(domain.ErrCodeConflict,
			"call %s was cancelled before execution", rec.CallID)
	}
	s.ledger.UpdateStatus(rec.CallID, domain.StatusRunning)

	raw, execErr := s.executor.Execute(ctx, defaultRoutingKey, rec.ToolName, finalParams)
	if execErr != nil {
		if _, cerr := s.store.CompleteToolCall(ctx, rec.CallID, domain.StatusError, nil, execErr.Error()); cerr != nil {
			return nil, fmt.Errorf("failed to record execution error: %w", cerr)
		}
		s.ledger.MarkExecuted(rec.CallID)
		s.ledger.UpdateStatus(rec.CallID, domain.StatusError)
		s.finishEvents(ctx, rec, sessionID, domain.StatusError, execErr.Error())
		return nil, execErr
	}

	result := s.normalizer.Normalize(ctx, rec.ToolName, raw)
	if _, err := s.store.CompleteToolCall(ctx, rec.CallID, domain.StatusCompleted, &result, ""); err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}
	s.ledger.MarkExecuted(rec.CallID)
	s.ledger.UpdateStatus(rec.CallID, domain.StatusCompleted)
	s.finishEvents(ctx, rec, sessionID, domain.StatusCompleted, "")

	return &domain.DecisionResponse{Success: true, CallID: rec.CallID, Result: &result}, nil
}

func (s *Service) finishEvents(ctx context.Context, rec *domain.ToolCallRecord, sessionID string, status domain.Status, errMsg string) {
	payload := map[string]interface{}{
		"tool_name": rec.ToolName,
		"status":    status,
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	_ = s.recordEvent(ctx, rec.CallID, domain.EventTypeToolResult, payload)

	s.notify(ctx, map[string]interface{}{
		"type":       "tool_result",
		"ts":         time.Now().UnixMilli(),
		"call_id":    rec.CallID,
		"session_id": sessionID,
		"tool_name":  rec.ToolName,
		"status":     status,
		"error":      errMsg,
	})
}
