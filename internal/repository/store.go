// Package store provides durable persistence for tool call records. The
// store is the single source of truth across requests and processes; the
// in-process ledger is only an accelerator.
package store

import (
	"context"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
)

// Store is the persistence interface for tool call records and their audit
// events. Status transitions use compare-and-swap semantics so two
// concurrent approvals for the same call cannot both win.
type Store interface {
	// CreateToolCall inserts a record with status pending. Returns false
	// without error when a record with the same call_id already exists.
	CreateToolCall(ctx context.Context, rec *domain.ToolCallRecord) (bool, error)

	// GetToolCall returns the record, or nil when unknown.
	GetToolCall(ctx context.Context, callID string) (*domain.ToolCallRecord, error)

	// TransitionToolCall atomically moves the record from one of the given
	// statuses to the new status. Returns false when the record was not in
	// any of the expected statuses.
	TransitionToolCall(ctx context.Context, callID string, from []domain.Status, to domain.Status) (bool, error)

	// UpdateToolCallParams persists the transformed parameter set.
	UpdateToolCallParams(ctx context.Context, callID string, params domain.Params) error

	// CompleteToolCall atomically moves a running record to a terminal
	// status with its result or error message. Returns false when the
	// record was not running.
	CompleteToolCall(ctx context.Context, callID string, status domain.Status, result *domain.NormalizedResult, errMsg string) (bool, error)

	// ListToolCallsBySession returns the session's records, newest first.
	ListToolCallsBySession(ctx context.Context, sessionID string, limit int) ([]*domain.ToolCallRecord, error)

	// ListExpiredPending returns pending records created before the cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ToolCallRecord, error)

	// CreateEvent appends an audit event.
	CreateEvent(ctx context.Context, event *domain.Event) error

	// ListEvents returns the call's audit events in chronological order.
	ListEvents(ctx context.Context, callID string, limit int) ([]*domain.Event, error)

	Close() error
}
