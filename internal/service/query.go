package service

import (
	"context"
	"fmt"

	"github.com/toolgate/toolgate/internal/domain"
)

// GetToolCall returns the record for callID.
func (s *Service) GetToolCall(ctx context.Context, callID string) (*domain.ToolCallRecord, error) {
	rec, err := s.store.GetToolCall(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool call: %w", err)
	}
	if rec == nil {
		return nil, domain.NewError(domain.ErrCodeNotFound, "unknown call %s", callID)
	}
	return rec, nil
}

// ListToolCalls returns a session's records, newest first.
func (s *Service) ListToolCalls(ctx context.Context, sessionID string, limit int) ([]*domain.ToolCallRecord, error) {
	recs, err := s.store.ListToolCallsBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return recs, nil
}

// ListEvents returns a call's audit trail.
func (s *Service) ListEvents(ctx context.Context, callID string, limit int) ([]*domain.Event, error) {
	events, err := s.store.ListEvents(ctx, callID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// GetTools returns the discovery snapshot for the routing context.
func (s *Service) GetTools(ctx context.Context, routingKey string) (domain.DiscoverySnapshot, error) {
	if routingKey == "" {
		routingKey = defaultRoutingKey
	}
	return s.discovery.GetTools(ctx, routingKey)
}
