package entrypoint_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	entrypoint "github.com/fortressi/entrypoint"
	"github.com/fortressi/entrypoint/adapters"
	"github.com/fortressi/entrypoint/chain"
)

const (
	entryPointAddr = "entry_point"
	venueAddr      = "osmosis_adapter"
	dryVenueAddr   = "dry_adapter"
	ibcAdapterAddr = "ibc_transfer_adapter"
	ibcModuleAddr  = "ibc_module"
	tokenAddr      = "cw20_token"
	userAddr       = "user"
	recipientAddr  = "recipient"
	admin          = "admin"
)

type testEnv struct {
	t   *testing.T
	ctx context.Context
	rt  *chain.Runtime
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	rt := chain.NewRuntime("entrypoint-test-1")

	pools := []adapters.Pool{
		{ID: "1", DenomIn: "uatom", DenomOut: "uosmo", Rate: decimal.RequireFromString("0.95")},
		{ID: "2", DenomIn: "uosmo", DenomOut: "untrn", Rate: decimal.RequireFromString("2")},
		{ID: "3", DenomIn: tokenAddr, DenomOut: "uosmo", Rate: decimal.RequireFromString("0.5")},
	}
	venue, err := adapters.NewFixedRateVenue(pools...)
	require.NoError(t, err)
	require.NoError(t, rt.Deploy(venueAddr, venue))
	dry, err := adapters.NewFixedRateVenue(pools...)
	require.NoError(t, err)
	require.NoError(t, rt.Deploy(dryVenueAddr, dry))
	require.NoError(t, rt.Deploy(ibcAdapterAddr, adapters.NewIbcTransferAdapter(ibcModuleAddr)))
	require.NoError(t, rt.Deploy("vault", failingContract()))
	require.NoError(t, rt.Deploy("reentrant", reentrantContract()))

	require.NoError(t, rt.Mint(venueAddr, chain.NewCoin("uosmo", 1_000_000_000), chain.NewCoin("untrn", 1_000_000_000)))
	require.NoError(t, rt.Mint(userAddr, chain.NewCoin("uatom", 1_000_000)))
	_, err = rt.Instantiate(ctx, admin, tokenAddr, adapters.Cw20Token{}, adapters.Cw20InstantiateMsg{
		InitialBalances: []adapters.Cw20Balance{{Address: userAddr, Amount: chain.NewUint128(1_000_000)}},
	})
	require.NoError(t, err)

	_, err = rt.Instantiate(ctx, admin, entryPointAddr, entrypoint.New(), entrypoint.InstantiateMsg{
		SwapVenues: []entrypoint.SwapVenue{
			{Name: "osmosis-poolmanager", AdapterContractAddress: venueAddr},
			{Name: "dry-pool", AdapterContractAddress: dryVenueAddr},
		},
		IbcTransferContractAddress: ibcAdapterAddr,
		BlockedAddresses:           []string{"treasury"},
	})
	require.NoError(t, err)

	return &testEnv{t: t, ctx: ctx, rt: rt}
}

// failingContract rejects every execute.
func failingContract() *chain.ContractFunc {
	return chain.NewContractFunc(
		func(context.Context, chain.Deps, chain.Env, chain.MessageInfo, []byte) (*chain.Response, error) {
			return nil, errors.New("vault is closed")
		}, nil, nil)
}

// reentrantContract forwards whatever it receives back into the entry point
// as a new swap_and_action request.
func reentrantContract() *chain.ContractFunc {
	return chain.NewContractFunc(
		func(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, _ []byte) (*chain.Response, error) {
			msg, err := chain.NewWasmExecute(entryPointAddr, entrypoint.ExecuteMsg{
				SwapAndAction: &entrypoint.SwapAndActionMsg{},
			}, info.Funds...)
			if err != nil {
				return nil, err
			}
			return chain.NewResponse().AddMessage(msg), nil
		}, nil, nil)
}

func (e *testEnv) timeout() uint64 {
	return uint64(e.rt.Block().Time.Add(time.Hour).UnixNano())
}

func (e *testEnv) balance(address, denom string) string {
	e.t.Helper()
	amount, err := e.rt.Balance(address, denom)
	require.NoError(e.t, err)
	return amount.String()
}

func (e *testEnv) phase() entrypoint.Phase {
	e.t.Helper()
	var resp entrypoint.PhaseResponse
	require.NoError(e.t, e.rt.Query(e.ctx, entryPointAddr, entrypoint.QueryMsg{Phase: &struct{}{}}, &resp))
	return resp.Phase
}

func (e *testEnv) swapAndAction(msg entrypoint.SwapAndActionMsg, funds ...chain.Coin) (*chain.TxResult, error) {
	return e.rt.Execute(e.ctx, userAddr, entryPointAddr, entrypoint.ExecuteMsg{SwapAndAction: &msg}, funds...)
}

func (e *testEnv) action(msg entrypoint.ActionMsg, funds ...chain.Coin) (*chain.TxResult, error) {
	return e.rt.Execute(e.ctx, userAddr, entryPointAddr, entrypoint.ExecuteMsg{Action: &msg}, funds...)
}

// cw20Send sends amount of the test token from the user to the entry point
// with hook as the receive message.
func (e *testEnv) cw20Send(hook entrypoint.Cw20HookMsg, amount uint64, funds ...chain.Coin) (*chain.TxResult, error) {
	e.t.Helper()
	send, err := entrypoint.Cw20Asset(tokenAddr, chain.NewUint128(amount)).SendMsg(entryPointAddr, hook)
	require.NoError(e.t, err)
	return e.rt.Execute(e.ctx, userAddr, tokenAddr, send.Wasm.Msg, funds...)
}

func (e *testEnv) cw20Balance(address string) string {
	e.t.Helper()
	var resp entrypoint.Cw20BalanceResponse
	require.NoError(e.t, e.rt.Query(e.ctx, tokenAddr, entrypoint.Cw20QueryMsg{
		Balance: &entrypoint.Cw20BalanceQuery{Address: address},
	}, &resp))
	return resp.Balance.String()
}

func tokenToOsmo(venue string) entrypoint.Swap {
	return entrypoint.Swap{SwapExactAssetIn: &entrypoint.SwapExactAssetIn{
		SwapVenueName: venue,
		Operations:    []entrypoint.SwapOperation{{Pool: "3", DenomIn: tokenAddr, DenomOut: "uosmo"}},
	}}
}

func atomToOsmo(venue string) entrypoint.Swap {
	return entrypoint.Swap{SwapExactAssetIn: &entrypoint.SwapExactAssetIn{
		SwapVenueName: venue,
		Operations:    []entrypoint.SwapOperation{{Pool: "1", DenomIn: "uatom", DenomOut: "uosmo"}},
	}}
}

func coin(denom string, amount uint64) chain.Coin {
	return chain.NewCoin(denom, amount)
}

func asset(denom string, amount uint64) entrypoint.Asset {
	return entrypoint.NativeAsset(chain.NewCoin(denom, amount))
}

func bankSend(to string) entrypoint.Action {
	return entrypoint.Action{BankSend: &entrypoint.BankSendAction{ToAddress: to}}
}
