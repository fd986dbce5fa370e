package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/toolgate/toolgate/internal/domain"
)

// recordEvent appends an audit event for the call.
func (s *Service) recordEvent(ctx context.Context, callID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		CallID:  callID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// notify pushes an event to the operator webhook. Best effort.
func (s *Service) notify(ctx context.Context, event map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("WARN: failed to deliver webhook event: %v", err)
	}
}
