package entrypoint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entrypoint "github.com/fortressi/entrypoint"
	"github.com/fortressi/entrypoint/chain"
)

func TestActionBankSend(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.timeout(),
		Action:           bankSend(recipientAddr),
	}, coin("uatom", 100))
	require.NoError(t, err)

	status, _ := res.Attribute("status")
	assert.Equal(t, entrypoint.StatusActionSuccessful, status)
	assert.Equal(t, "100", env.balance(recipientAddr, "uatom"))
	assert.Equal(t, entrypoint.PhaseIdle, env.phase())
}

func TestActionExactOutRefundsSurplus(t *testing.T) {
	env := newTestEnv(t)
	minAsset := asset("uatom", 60)

	res, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.timeout(),
		Action:           bankSend(recipientAddr),
		ExactOut:         true,
		MinAsset:         &minAsset,
	}, coin("uatom", 100))
	require.NoError(t, err)

	refund, _ := res.Attribute("exact_out_refund")
	assert.Equal(t, "40uatom", refund)
	assert.Equal(t, "60", env.balance(recipientAddr, "uatom"))
	// 100 sent, 40 of it refunded to the sender.
	assert.Equal(t, "999940", env.balance(userAddr, "uatom"))
}

func TestActionExactOutRefundsSurplusToRecoveryAddr(t *testing.T) {
	env := newTestEnv(t)
	minAsset := asset("uatom", 60)

	res, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.timeout(),
		Action:           bankSend(recipientAddr),
		ExactOut:         true,
		MinAsset:         &minAsset,
		RecoveryAddr:     "rescue",
	}, coin("uatom", 100))
	require.NoError(t, err)

	refund, _ := res.Attribute("exact_out_refund")
	assert.Equal(t, "40uatom", refund)
	assert.Equal(t, "40", env.balance("rescue", "uatom"))
	assert.Equal(t, "60", env.balance(recipientAddr, "uatom"))
	assert.Equal(t, "999900", env.balance(userAddr, "uatom"))
	assert.Equal(t, "0", env.balance(entryPointAddr, "uatom"))
}

func TestActionFailureRefunds(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.timeout(),
		Action: entrypoint.Action{ContractCall: &entrypoint.ContractCallAction{
			ContractAddress: "vault",
			Msg:             []byte(`{}`),
		}},
		RecoveryAddr: "rescue",
	}, coin("uatom", 100))
	require.NoError(t, err)

	status, _ := res.Attribute("status")
	assert.Equal(t, entrypoint.StatusActionFailed, status)
	assert.Equal(t, "100", env.balance("rescue", "uatom"))
	assert.Equal(t, "0", env.balance(entryPointAddr, "uatom"))
}

func TestActionIbcTransferDeductsFee(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.timeout(),
		Action: entrypoint.Action{IbcTransfer: &entrypoint.IbcTransferAction{IbcInfo: entrypoint.IbcInfo{
			SourceChannel:  "channel-3",
			Receiver:       "cosmos1receiver",
			RecoverAddress: "user_recover",
			Fee:            &entrypoint.IbcFee{TimeoutFee: chain.Coins{coin("uatom", 5)}},
		}}},
	}, coin("uatom", 100))
	require.NoError(t, err)

	out, _ := res.Attribute("transfer_out")
	assert.Equal(t, "95uatom", out)
	assert.Equal(t, "100", env.balance(ibcAdapterAddr, "uatom"))

	var inFlight map[string]any
	require.NoError(t, env.rt.Query(env.ctx, ibcAdapterAddr, entrypoint.IbcAdapterQueryMsg{
		InProgressIbcTransfer: &entrypoint.InProgressIbcTransferQuery{ChannelID: "channel-3", SequenceID: 1},
	}, &inFlight))
	assert.Equal(t, "cosmos1receiver", inFlight["receiver"])
}

func TestActionValidation(t *testing.T) {
	wrongDenom := asset("uosmo", 60)
	tooMuch := asset("uatom", 200)

	tests := []struct {
		name string
		msg  entrypoint.ActionMsg
		want error
	}{
		{
			name: "exact out without min asset",
			msg:  entrypoint.ActionMsg{Action: bankSend(recipientAddr), ExactOut: true},
			want: entrypoint.ErrNoMinAssetProvided,
		},
		{
			name: "min asset denom differs",
			msg:  entrypoint.ActionMsg{Action: bankSend(recipientAddr), ExactOut: true, MinAsset: &wrongDenom},
			want: entrypoint.ErrActionDenomMismatch,
		},
		{
			name: "min asset larger than sent",
			msg:  entrypoint.ActionMsg{Action: bankSend(recipientAddr), ExactOut: true, MinAsset: &tooMuch},
			want: entrypoint.ErrRemainingAssetLessThanMinAsset,
		},
		{
			name: "min asset larger than sent without exact out",
			msg:  entrypoint.ActionMsg{Action: bankSend(recipientAddr), MinAsset: &tooMuch},
			want: entrypoint.ErrRemainingAssetLessThanMinAsset,
		},
		{
			name: "fee swap without a user swap",
			msg: entrypoint.ActionMsg{Action: entrypoint.Action{IbcTransfer: &entrypoint.IbcTransferAction{
				IbcInfo: entrypoint.IbcInfo{
					SourceChannel: "channel-0", Receiver: "r", RecoverAddress: "rec",
					Fee: &entrypoint.IbcFee{RecvFee: chain.Coins{coin("uosmo", 1)}},
				},
				FeeSwap: &entrypoint.SwapExactAssetOut{SwapVenueName: "osmosis-poolmanager"},
			}}},
			want: entrypoint.ErrFeeSwapNotAllowed,
		},
		{
			name: "blocked contract call",
			msg: entrypoint.ActionMsg{Action: entrypoint.Action{ContractCall: &entrypoint.ContractCallAction{
				ContractAddress: ibcAdapterAddr,
				Msg:             []byte(`{}`),
			}}},
			want: entrypoint.ErrContractCallAddressBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.msg.TimeoutTimestamp = env.timeout()

			_, err := env.action(tt.msg, coin("uatom", 100))
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, "1000000", env.balance(userAddr, "uatom"))
		})
	}
}

func TestActionTimeout(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.action(entrypoint.ActionMsg{
		TimeoutTimestamp: env.rt.Block().TimeNanos() - 1,
		Action:           bankSend(recipientAddr),
	}, coin("uatom", 100))
	require.ErrorIs(t, err, entrypoint.ErrTimeout)
}
