package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolgate/toolgate/internal/adapter/notifier"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/discovery"
	"github.com/toolgate/toolgate/internal/domain"
	"github.com/toolgate/toolgate/internal/executor"
	"github.com/toolgate/toolgate/internal/ledger"
	"github.com/toolgate/toolgate/internal/media"
	"github.com/toolgate/toolgate/internal/normalize"
	"github.com/toolgate/toolgate/internal/provider"
	store "github.com/toolgate/toolgate/internal/repository"
	"github.com/toolgate/toolgate/internal/transform"
	"github.com/toolgate/toolgate/policy"
)

// newTestService wires the full pipeline over an in-memory store and an
// in-process tool provider.
func newTestService(t *testing.T, prov *provider.LocalProvider) (*Service, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	disc := discovery.New([]provider.Provider{prov}, time.Minute)
	engine := executor.New(disc, 0, time.Millisecond)

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	cfg := &config.Config{PendingTTL: 10 * time.Minute}
	svc := New(
		st,
		ledger.New(),
		disc,
		transform.New(media.New(false), nil),
		engine,
		normalize.New(nil),
		notifier.NewClient(""),
		policyEngine,
		cfg,
	)
	return svc, st
}

func newTestProvider(t *testing.T) *provider.LocalProvider {
	t.Helper()
	p := provider.NewLocalProvider("test")

	p.MustRegister(domain.ToolDescriptor{Name: "draft_email"},
		func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
			subject, _ := args.GetString("subject")
			out, _ := json.Marshal(map[string]string{"id": "d_1", "subject": subject})
			return out, nil
		})

	p.MustRegister(domain.ToolDescriptor{Name: "search_contacts"},
		func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
			return json.RawMessage(`{"items":[{"name":"Alice"},{"name":"Bob"}]}`), nil
		})

	p.MustRegister(domain.ToolDescriptor{Name: "send_flaky"},
		func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
			return nil, fmt.Errorf("connection reset")
		})

	return p
}

func emailParams() domain.Params {
	p := domain.NewParams()
	p.Set("body", "Hello Bob")
	p.Set("subject", "Hi")
	p.Set("to", "bob@example.com")
	return p
}

func TestProposeLandsPending(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	resp, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.NotEmpty(t, resp.CallID)

	rec, err := st.GetToolCall(ctx, resp.CallID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StatusPending, rec.Status)

	events, err := st.ListEvents(ctx, resp.CallID, 10)
	require.NoError(t, err)
	var types []domain.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, domain.EventTypeProposed)
	assert.Contains(t, types, domain.EventTypePolicyDecision)
	assert.Contains(t, types, domain.EventTypeApprovalRequired)
}

func TestProposeRequiresToolName(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))

	_, err := svc.Propose(context.Background(), domain.ProposeRequest{SessionID: "sess-1"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}

func TestProposeReadOnlyToolAutoExecutes(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	resp, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "search_contacts",
		Params:    domain.NewParams(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Contains(t, resp.Result.Content[0].Text, "Found 2 items")

	rec, err := st.GetToolCall(ctx, resp.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
}

func TestProposeBlockedTool(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	resp, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "dangerous.command",
		Params:    domain.NewParams(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, resp.Status)

	rec, err := st.GetToolCall(ctx, resp.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)
}

func TestProposeDuplicateCallIDIsNoOp(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	req := domain.ProposeRequest{
		CallID:    "tc_fixed",
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	}
	first, err := svc.Propose(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, first.Status)

	second, err := svc.Propose(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "tc_fixed", second.CallID)
	assert.Equal(t, domain.StatusPending, second.Status)
}

func TestDecideApproveExecutes(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)

	resp, err := svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionApprove})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Contains(t, resp.Result.Content[0].Text, "draft")
	assert.Contains(t, resp.Result.Content[0].Text, `"Hi"`)

	rec, err := st.GetToolCall(ctx, prop.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	// Final params carry the provider's required key order.
	assert.Equal(t, []string{"to", "subject", "body"}, rec.Params.Keys())

	events, err := st.ListEvents(ctx, prop.CallID, 10)
	require.NoError(t, err)
	var types []domain.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, domain.EventTypeApprovalDecision)
	assert.Contains(t, types, domain.EventTypeToolResult)
}

func TestDecideApproveWithOverrideParams(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)

	override := domain.NewParams()
	override.Set("subject", "Corrected")
	resp, err := svc.Decide(ctx, prop.CallID, domain.DecisionRequest{
		Action: domain.ActionApprove,
		Params: &override,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Result.Content[0].Text, `"Corrected"`)
}

func TestDecideCancel(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)

	resp, err := svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionCancel})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)

	rec, err := st.GetToolCall(ctx, prop.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)

	// A later approval must lose.
	_, err = svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeConflict))
}

func TestDecideTwiceConflicts(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionApprove})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeConflict))
}

func TestConcurrentApprovalsExecuteExactlyOnce(t *testing.T) {
	var execs int32
	prov := provider.NewLocalProvider("test")
	prov.MustRegister(domain.ToolDescriptor{Name: "send_invite"},
		func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
			atomic.AddInt32(&execs, 1)
			return json.RawMessage(`{"id":"m_1"}`), nil
		})

	svc, _ := newTestService(t, prov)
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "send_invite",
		Params:    domain.NewParams(),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, prop.Status)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Decide(ctx, prop.CallID,
				domain.DecisionRequest{Action: domain.ActionApprove})
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domain.IsCode(err, domain.ErrCodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one approval wins")
	assert.Equal(t, 1, conflicts, "the loser gets a conflict")
	assert.Equal(t, int32(1), atomic.LoadInt32(&execs), "the side effect runs once")
}

func TestDecideUnknownCall(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))

	_, err := svc.Decide(context.Background(), "tc_missing",
		domain.DecisionRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotFound))
}

func TestDecideInvalidAction(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: "maybe"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}

func TestDecideReconcilesLedgerOnlyRecord(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	// Simulate a proposal that only reached the in-process mirror.
	svc.ledger.Register(domain.ToolCallRecord{
		CallID:    "tc_ledger",
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})

	resp, err := svc.Decide(ctx, "tc_ledger", domain.DecisionRequest{Action: domain.ActionCancel})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)

	rec, err := st.GetToolCall(ctx, "tc_ledger")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StatusCancelled, rec.Status)
}

func TestDecideExecutionFailureRecordsError(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	prop, err := svc.Propose(ctx, domain.ProposeRequest{
		SessionID: "sess-1",
		ToolName:  "send_flaky",
		Params:    domain.NewParams(),
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, prop.CallID, domain.DecisionRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeTransient))

	rec, err := st.GetToolCall(ctx, prop.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestSweepExpiredPending(t *testing.T) {
	svc, st := newTestService(t, newTestProvider(t))
	ctx := context.Background()

	old := &domain.ToolCallRecord{
		CallID:    "tc_old",
		SessionID: "sess-1",
		ToolName:  "draft_email",
		Params:    emailParams(),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	_, err := st.CreateToolCall(ctx, old)
	require.NoError(t, err)

	svc.sweepExpiredPending(ctx)

	rec, err := st.GetToolCall(ctx, "tc_old")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)

	events, err := st.ListEvents(ctx, "tc_old", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeExpired, events[0].Type)
}

func TestGetToolCallUnknown(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))

	_, err := svc.GetToolCall(context.Background(), "tc_missing")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotFound))
}

func TestGetTools(t *testing.T) {
	svc, _ := newTestService(t, newTestProvider(t))

	snap, err := svc.GetTools(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, snap.Tools, 3)
	require.Len(t, snap.Health, 1)
	assert.True(t, snap.Health[0].Healthy)
}
