package entrypoint

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortressi/entrypoint/chain"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from    Phase
		event   PhaseEvent
		want    Phase
		illegal bool
	}{
		{from: PhaseIdle, event: EventSwapDispatched, want: PhaseAwaitingSwap},
		{from: PhaseIdle, event: EventActionDispatched, want: PhaseAwaitingAction},
		{from: PhaseAwaitingSwap, event: EventSwapResolved, want: PhaseIdle},
		{from: PhaseAwaitingAction, event: EventActionResolved, want: PhaseIdle},
		{from: PhaseIdle, event: EventSwapResolved, illegal: true},
		{from: PhaseIdle, event: EventActionResolved, illegal: true},
		{from: PhaseAwaitingSwap, event: EventActionDispatched, illegal: true},
		{from: PhaseAwaitingSwap, event: EventSwapDispatched, illegal: true},
		{from: PhaseAwaitingAction, event: EventSwapDispatched, illegal: true},
		{from: PhaseAwaitingAction, event: EventActionDispatched, illegal: true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, err := tt.from.next(tt.event)
			if tt.illegal {
				require.ErrorIs(t, err, ErrIllegalPhaseTransition)
				var cerr *ConsistencyError
				assert.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(PhaseResponse{Phase: PhaseAwaitingAction})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"awaiting_action"}`, string(data))

	var p Phase
	require.Error(t, json.Unmarshal([]byte(`"sleeping"`), &p))
}

func TestContinuationTakenOnce(t *testing.T) {
	conts := NewContinuationStore(chain.NewMemDB())

	rec := SwapContinuation{
		RecoveryAddr: "user",
		Funds:        []Asset{NativeAsset(chain.NewCoin("uatom", 100))},
		MinAsset:     NativeAsset(chain.NewCoin("uosmo", 90)),
	}
	require.NoError(t, conts.PutSwap(rec))
	phase, err := conts.Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingSwap, phase)

	peeked, err := conts.PeekSwap()
	require.NoError(t, err)
	assert.Equal(t, "user", peeked.RecoveryAddr)

	taken, err := conts.TakeSwap()
	require.NoError(t, err)
	require.Len(t, taken.Funds, 1)
	assert.Equal(t, "100uatom", taken.Funds[0].String())

	_, err = conts.TakeSwap()
	require.ErrorIs(t, err, ErrNoContinuation)
	var cerr *ConsistencyError
	assert.ErrorAs(t, err, &cerr)

	phase, err = conts.Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, phase)

	_, err = conts.TakeAction()
	require.ErrorIs(t, err, ErrNoContinuation)
}

func TestContinuationPutRequiresIdle(t *testing.T) {
	store := chain.NewMemDB()
	conts := NewContinuationStore(store)

	require.NoError(t, conts.PutAction(ActionContinuation{RecoveryAddr: "user"}))
	err := conts.RequireIdle()
	require.ErrorIs(t, err, ErrOperationInFlight)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	require.ErrorIs(t, conts.PutSwap(SwapContinuation{}), ErrIllegalPhaseTransition)
	require.ErrorIs(t, conts.PutAction(ActionContinuation{}), ErrIllegalPhaseTransition)

	rec, err := conts.TakeAction()
	require.NoError(t, err)
	assert.Equal(t, "user", rec.RecoveryAddr)
	require.NoError(t, conts.RequireIdle())
	assert.Zero(t, store.Len(), "idle contract keeps nothing in storage")
}

func TestMigrateRefusedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	store := chain.NewMemDB()
	deps := chain.Deps{Storage: store, Logger: zerolog.Nop()}
	e := New()

	require.NoError(t, NewContinuationStore(store).PutSwap(SwapContinuation{RecoveryAddr: "user"}))
	_, err := e.Migrate(ctx, deps, chain.Env{}, []byte(`{}`))
	require.ErrorIs(t, err, ErrMigrationWithPendingContinuation)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = NewContinuationStore(store).TakeSwap()
	require.NoError(t, err)
	resp, err := e.Migrate(ctx, deps, chain.Env{}, []byte(`{}`))
	require.NoError(t, err)
	assert.Contains(t, resp.Attributes, chain.Attribute{Key: "contract_version", Value: ContractVersion})
}

func TestReplyRejectsUnknownID(t *testing.T) {
	deps := chain.Deps{Storage: chain.NewMemDB(), Logger: zerolog.Nop()}
	_, err := New().Reply(context.Background(), deps, chain.Env{}, chain.Reply{ID: 99})
	require.ErrorIs(t, err, ErrUnknownReplyID)
}

func TestSwapReplyWithoutContinuation(t *testing.T) {
	deps := chain.Deps{Storage: chain.NewMemDB(), Logger: zerolog.Nop()}
	_, err := New().Reply(context.Background(), deps, chain.Env{}, chain.Reply{
		ID:     SwapReplyID,
		Result: chain.SubMsgResult{Err: "boom"},
	})
	require.ErrorIs(t, err, ErrNoContinuation)
}
