package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/toolgate/toolgate/internal/domain"
)

func newTestRecord(callID string) domain.ToolCallRecord {
	return domain.ToolCallRecord{
		CallID:   callID,
		ToolName: "search_emails",
		Status:   domain.StatusPending,
	}
}

func TestRegisterDuplicate(t *testing.T) {
	l := New()

	assert.True(t, l.Register(newTestRecord("tc_1")))
	assert.False(t, l.Register(newTestRecord("tc_1")))
	assert.Equal(t, 1, l.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	l := New()
	l.Register(newTestRecord("tc_1"))

	e, ok := l.Get("tc_1")
	assert.True(t, ok)
	e.Record.Status = domain.StatusCancelled

	e2, _ := l.Get("tc_1")
	assert.Equal(t, domain.StatusPending, e2.Record.Status)
}

func TestMarkExecutedAndUpdateStatus(t *testing.T) {
	l := New()
	l.Register(newTestRecord("tc_1"))

	l.MarkExecuted("tc_1")
	l.UpdateStatus("tc_1", domain.StatusCompleted)

	e, ok := l.Get("tc_1")
	assert.True(t, ok)
	assert.True(t, e.Executed)
	assert.Equal(t, domain.StatusCompleted, e.Record.Status)

	// Unknown ids are ignored.
	l.MarkExecuted("tc_missing")
	l.UpdateStatus("tc_missing", domain.StatusError)
}

func TestRemove(t *testing.T) {
	l := New()
	l.Register(newTestRecord("tc_1"))

	l.Remove("tc_1")
	_, ok := l.Get("tc_1")
	assert.False(t, ok)
}

func TestPrune(t *testing.T) {
	l := New()

	base := time.Now()
	l.now = func() time.Time { return base.Add(-2 * time.Hour) }
	l.Register(newTestRecord("tc_old"))

	l.now = func() time.Time { return base }
	l.Register(newTestRecord("tc_fresh"))

	removed := l.Prune(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := l.Get("tc_old")
	assert.False(t, ok)
	_, ok = l.Get("tc_fresh")
	assert.True(t, ok)
}
