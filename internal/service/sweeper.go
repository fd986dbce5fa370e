package service

import (
	"context"
	"log"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
)

// RunPendingSweeper cancels pending records nobody decided within the
// configured TTL and prunes stale ledger entries. Run in its own goroutine.
func (s *Service) RunPendingSweeper(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpiredPending(ctx)
		}
	}
}

func (s *Service) sweepExpiredPending(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.config.PendingTTL)
	expired, err := s.store.ListExpiredPending(sweepCtx, cutoff, 100)
	if err != nil {
		log.Printf("WARN: pending sweep failed: %v", err)
		return
	}

	for _, rec := range expired {
		ok, err := s.store.TransitionToolCall(sweepCtx, rec.CallID,
			[]domain.Status{domain.StatusPending}, domain.StatusCancelled)
		if err != nil {
			log.Printf("WARN: failed to expire tool call %s: %v", rec.CallID, err)
			continue
		}
		if !ok {
			continue
		}
		s.ledger.Remove(rec.CallID)
		_ = s.recordEvent(sweepCtx, rec.CallID, domain.EventTypeExpired, map[string]interface{}{
			"tool_name":   rec.ToolName,
			"pending_ttl": s.config.PendingTTL.String(),
		})
		log.Printf("INFO: expired pending tool call %s (%s)", rec.CallID, rec.ToolName)
	}

	s.ledger.Prune(2 * s.config.PendingTTL)
}
