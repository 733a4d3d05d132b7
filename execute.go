package entrypoint

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/fortressi/entrypoint/chain"
)

func checkTimeout(env chain.Env, timeout uint64) error {
	if now := env.Block.TimeNanos(); timeout <= now {
		return validationFailedf(ErrTimeout, "timeout %d, block time %d", timeout, now)
	}
	return nil
}

// deposit works out who sent what. Without a hook it is the single coin
// attached by the caller. With a cw20 hook the caller is the token
// contract and the tokens belong to hook.Sender. Either way the result is
// checked against the declared sent asset when there is one.
func deposit(info chain.MessageInfo, hook *Cw20ReceiveMsg, declared *Asset) (string, Asset, error) {
	sender := info.Sender
	var sent Asset
	if hook != nil {
		if len(info.Funds) != 0 {
			return "", Asset{}, validationFailedf(ErrInvalidFunds, "cw20 hook came with %s attached", info.Funds)
		}
		sender, sent = hook.Sender, Cw20Asset(info.Sender, hook.Amount)
	} else {
		if len(info.Funds) != 1 {
			return "", Asset{}, validationFailedf(ErrInvalidFunds, "got %d coins", len(info.Funds))
		}
		sent = NativeAsset(info.Funds[0])
	}
	if sent.Amount().IsZero() {
		return "", Asset{}, validationFailedf(ErrZeroAmount, "sent %s", sent)
	}
	if declared != nil {
		if err := declared.Validate(); err != nil {
			return "", Asset{}, err
		}
		if declared.IsNative() != sent.IsNative() || declared.Denom() != sent.Denom() || !declared.Amount().Equal(sent.Amount()) {
			return "", Asset{}, validationFailedf(ErrSentAssetMismatch, "declared %s, received %s", declared, sent)
		}
	}
	return sender, sent, nil
}

func checkContractCall(s chain.KVStore, action Action) error {
	if action.ContractCall == nil {
		return nil
	}
	blocked, err := NewBlockedSet(s).IsBlocked(action.ContractCall.ContractAddress)
	if err != nil {
		return err
	}
	if blocked {
		return validationFailedf(ErrContractCallAddressBlocked, "%s", action.ContractCall.ContractAddress)
	}
	return nil
}

func (e *EntryPoint) requireSelf(env chain.Env, info chain.MessageInfo, command string) error {
	if info.Sender != env.Contract.Address {
		return unauthorized(info.Sender, command)
	}
	return nil
}

// receive unwraps a cw20 send into the request it carries.
func (e *EntryPoint) receive(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, hook Cw20ReceiveMsg) (*chain.Response, error) {
	var msg Cw20HookMsg
	if err := decode(hook.Msg, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.SwapAndAction != nil && msg.Action == nil:
		return e.swapAndAction(ctx, deps, env, info, &hook, *msg.SwapAndAction)
	case msg.Action != nil && msg.SwapAndAction == nil:
		return e.action(ctx, deps, env, info, &hook, *msg.Action)
	default:
		return nil, validationFailedf(ErrInvalidMessage, "cw20 hook must carry exactly one of swap_and_action or action")
	}
}

// swapAndAction validates the whole request up front, records the swap
// continuation and dispatches the user swap as a self-call whose reply
// always comes back to onUserSwapResult.
func (e *EntryPoint) swapAndAction(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, hook *Cw20ReceiveMsg, msg SwapAndActionMsg) (*chain.Response, error) {
	conts := NewContinuationStore(deps.Storage)
	if err := conts.RequireIdle(); err != nil {
		return nil, err
	}
	if err := checkTimeout(env, msg.TimeoutTimestamp); err != nil {
		return nil, err
	}
	sender, sent, err := deposit(info, hook, msg.SentAsset)
	if err != nil {
		return nil, err
	}
	if err := msg.MinAsset.Validate(); err != nil {
		return nil, err
	}
	minCoin, err := msg.MinAsset.Coin()
	if err != nil {
		return nil, err
	}
	if minCoin.IsZero() {
		return nil, validationFailedf(ErrZeroAmount, "min_asset %s", minCoin)
	}
	if err := msg.PostSwapAction.validate(); err != nil {
		return nil, err
	}
	if err := checkContractCall(deps.Storage, msg.PostSwapAction); err != nil {
		return nil, err
	}
	if err := validateAffiliates(minCoin.Amount, msg.Affiliates); err != nil {
		return nil, err
	}

	userSwap := UserSwapMsg{
		Swap:           msg.UserSwap,
		RemainingAsset: sent,
		MinAsset:       msg.MinAsset,
		PostSwapAction: msg.PostSwapAction,
	}
	plan, err := planUserSwap(ctx, deps, userSwap)
	if err != nil {
		return nil, err
	}

	recovery := msg.RecoveryAddr
	if recovery == "" {
		recovery = sender
	}
	if err := conts.PutSwap(SwapContinuation{
		RecoveryAddr:     recovery,
		Funds:            []Asset{sent},
		Swap:             msg.UserSwap,
		MinAsset:         msg.MinAsset,
		TimeoutTimestamp: msg.TimeoutTimestamp,
		PostSwapAction:   msg.PostSwapAction,
		Affiliates:       msg.Affiliates,
	}); err != nil {
		return nil, err
	}

	call, err := chain.NewWasmExecute(env.Contract.Address, ExecuteMsg{UserSwap: &userSwap})
	if err != nil {
		return nil, err
	}

	deps.Logger.Info().
		Str("sender", sender).
		Str("sent", sent.String()).
		Str("venue", msg.UserSwap.VenueName()).
		Str("min_asset", msg.MinAsset.String()).
		Str("post_swap_action", msg.PostSwapAction.kind()).
		Msg("dispatching user swap")

	return chain.NewResponse().
		AddSubMessage(chain.SubMsg{ID: SwapReplyID, Msg: call, ReplyOn: chain.ReplyAlways}).
		AddAttribute("action", "execute_swap_and_action").
		AddAttribute("sent_asset", sent.String()).
		AddAttribute("swap_venue", msg.UserSwap.VenueName()).
		AddAttribute("swap_in", plan.swapIn.String()).
		AddAttribute("min_asset", msg.MinAsset.String()).
		AddAttribute("recovery_addr", recovery), nil
}

// swapPlan is what the user swap sub-call dispatches.
type swapPlan struct {
	adapter string
	swapIn  Asset
	// pre runs before the user swap: the fee swap and the exact-out refund.
	pre []chain.CosmosMsg
}

// planUserSwap works out the IBC fee deduction, the venue and the exact
// swap input. It only queries, so swapAndAction can run it to reject a bad
// request before anything is recorded and userSwap can run it again to
// build the messages.
func planUserSwap(ctx context.Context, deps chain.Deps, msg UserSwapMsg) (*swapPlan, error) {
	if err := msg.Swap.validate(); err != nil {
		return nil, err
	}
	if err := msg.RemainingAsset.Validate(); err != nil {
		return nil, err
	}
	remaining := msg.RemainingAsset.AsCoin()
	venues := NewVenueRegistry(deps.Storage)
	plan := &swapPlan{}

	fee, err := msg.PostSwapAction.ibcFee()
	if err != nil {
		return nil, err
	}
	ibc := msg.PostSwapAction.IbcTransfer
	switch {
	case ibc != nil && ibc.FeeSwap != nil:
		if fee == nil {
			return nil, validationFailed(ErrFeeSwapWithoutIbcFees)
		}
		feeSwap := ibc.FeeSwap
		if err := ValidateSwapOperations(feeSwap.Operations, remaining.Denom, fee.Denom); err != nil {
			return nil, err
		}
		feeAdapter, err := venues.Resolve(feeSwap.SwapVenueName)
		if err != nil {
			return nil, err
		}
		feeIn, err := SimulateExactOut(ctx, deps.Querier, feeAdapter, feeSwap.Operations, NativeAsset(*fee))
		if err != nil {
			return nil, err
		}
		if feeIn.Denom() != remaining.Denom {
			return nil, validationFailedf(ErrSwapOperationsAssetInMismatch, "fee swap wants %s", feeIn)
		}
		if remaining.Amount, err = remaining.Amount.Sub(feeIn.Amount()); err != nil {
			return nil, validationFailedf(ErrInsufficientForIbcFee, "fee swap needs %s, have %s", feeIn, msg.RemainingAsset)
		}
		feeSwapMsg, err := msg.RemainingAsset.WithAmount(feeIn.Amount()).SendMsg(feeAdapter,
			SwapAdapterExecuteMsg{Swap: &SwapAdapterSwap{Operations: feeSwap.Operations}},
		)
		if err != nil {
			return nil, err
		}
		plan.pre = append(plan.pre, feeSwapMsg)

	case fee != nil:
		if !msg.RemainingAsset.IsNative() || fee.Denom != remaining.Denom {
			return nil, validationFailedf(ErrIbcFeeDenomMismatch, "fee %s, sent %s", fee, remaining)
		}
		if remaining.Amount, err = remaining.Amount.Sub(fee.Amount); err != nil {
			return nil, validationFailedf(ErrInsufficientForIbcFee, "fee %s, sent %s", fee, msg.RemainingAsset)
		}
	}
	if remaining.IsZero() {
		return nil, validationFailedf(ErrZeroAmount, "nothing left to swap after ibc fees")
	}

	ops := msg.Swap.Operations()
	if err := ValidateSwapOperations(ops, remaining.Denom, msg.MinAsset.Denom()); err != nil {
		return nil, err
	}
	if plan.adapter, err = venues.Resolve(msg.Swap.VenueName()); err != nil {
		return nil, err
	}

	plan.swapIn = msg.RemainingAsset.WithAmount(remaining.Amount)
	if exactOut := msg.Swap.SwapExactAssetOut; exactOut != nil {
		if exactOut.RefundAddress == "" {
			return nil, validationFailed(ErrNoRefundAddress)
		}
		needed, err := SimulateExactOut(ctx, deps.Querier, plan.adapter, ops, msg.MinAsset)
		if err != nil {
			return nil, err
		}
		if needed.Denom() != remaining.Denom {
			return nil, validationFailedf(ErrSwapOperationsAssetInMismatch, "venue wants %s", needed)
		}
		surplus, err := remaining.Amount.Sub(needed.Amount())
		if err != nil {
			return nil, validationFailedf(ErrRemainingLessThanSwapIn, "need %s, have %s", needed, remaining)
		}
		if !surplus.IsZero() {
			refund, err := msg.RemainingAsset.WithAmount(surplus).TransferMsg(exactOut.RefundAddress)
			if err != nil {
				return nil, err
			}
			plan.pre = append(plan.pre, refund)
		}
		plan.swapIn = msg.RemainingAsset.WithAmount(needed.Amount())
	}
	return plan, nil
}

// userSwap runs inside the SwapReplyID sub-call. The adapter swap replies
// to onSwapOutput, which enforces the minimum; if it fails the whole
// sub-call, fee swap and refund included, is discarded.
func (e *EntryPoint) userSwap(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, msg UserSwapMsg) (*chain.Response, error) {
	if err := e.requireSelf(env, info, "user_swap"); err != nil {
		return nil, err
	}
	plan, err := planUserSwap(ctx, deps, msg)
	if err != nil {
		return nil, err
	}
	swapMsg, err := plan.swapIn.SendMsg(plan.adapter,
		SwapAdapterExecuteMsg{Swap: &SwapAdapterSwap{Operations: msg.Swap.Operations()}},
	)
	if err != nil {
		return nil, err
	}

	return chain.NewResponse().
		AddMessages(plan.pre...).
		AddSubMessage(chain.SubMsg{ID: SwapOutputReplyID, Msg: swapMsg, ReplyOn: chain.ReplySuccess}).
		AddAttribute("action", "dispatch_user_swap").
		AddAttribute("swap_adapter", plan.adapter).
		AddAttribute("swap_in", plan.swapIn.String()), nil
}

// postSwapAction runs inside the ActionReplyID sub-call.
func (e *EntryPoint) postSwapAction(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, msg PostSwapActionMsg) (*chain.Response, error) {
	if err := e.requireSelf(env, info, "post_swap_action"); err != nil {
		return nil, err
	}
	if err := msg.Action.validate(); err != nil {
		return nil, err
	}

	resp := chain.NewResponse().
		AddAttribute("action", "execute_post_swap_action").
		AddAttribute("post_swap_action", msg.Action.kind()).
		AddAttribute("transfer_out", msg.TransferOut.String())

	switch {
	case msg.Action.BankSend != nil:
		send, err := msg.TransferOut.TransferMsg(msg.Action.BankSend.ToAddress)
		if err != nil {
			return nil, err
		}
		resp.AddMessage(send)

	case msg.Action.IbcTransfer != nil:
		coin, err := msg.TransferOut.Coin()
		if err != nil {
			return nil, err
		}
		adapter, err := loadIbcTransferAdapter(deps.Storage)
		if err != nil {
			return nil, err
		}
		fee, err := msg.Action.ibcFee()
		if err != nil {
			return nil, err
		}
		if fee != nil {
			resp.AddMessage(chain.NewBankSend(adapter, *fee))
		}
		transfer, err := chain.NewWasmExecute(adapter, IbcAdapterExecuteMsg{IbcTransfer: &IbcTransferMsg{
			Info:             msg.Action.IbcTransfer.IbcInfo,
			Coin:             coin,
			TimeoutTimestamp: msg.TimeoutTimestamp,
		}}, coin)
		if err != nil {
			return nil, err
		}
		resp.AddMessage(transfer)

	case msg.Action.ContractCall != nil:
		call := msg.Action.ContractCall
		exec, err := msg.TransferOut.SendMsg(call.ContractAddress, json.RawMessage(call.Msg))
		if err != nil {
			return nil, err
		}
		resp.AddMessage(exec)
	}
	return resp, nil
}

// action performs an action on the attached funds without a swap.
func (e *EntryPoint) action(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, hook *Cw20ReceiveMsg, msg ActionMsg) (*chain.Response, error) {
	conts := NewContinuationStore(deps.Storage)
	if err := conts.RequireIdle(); err != nil {
		return nil, err
	}
	if err := checkTimeout(env, msg.TimeoutTimestamp); err != nil {
		return nil, err
	}
	sender, sent, err := deposit(info, hook, msg.SentAsset)
	if err != nil {
		return nil, err
	}
	if err := msg.Action.validate(); err != nil {
		return nil, err
	}
	if err := checkContractCall(deps.Storage, msg.Action); err != nil {
		return nil, err
	}
	if ibc := msg.Action.IbcTransfer; ibc != nil && ibc.FeeSwap != nil {
		return nil, validationFailed(ErrFeeSwapNotAllowed)
	}
	if msg.Action.IbcTransfer != nil && !sent.IsNative() {
		return nil, validationFailedf(ErrNonNativeAsset, "ibc transfer of %s", sent)
	}

	recovery := msg.RecoveryAddr
	if recovery == "" {
		recovery = sender
	}
	resp := chain.NewResponse().
		AddAttribute("action", "execute_action").
		AddAttribute("sent_asset", sent.String())

	remaining := sent.AsCoin()
	fee, err := msg.Action.ibcFee()
	if err != nil {
		return nil, err
	}
	if fee != nil {
		if fee.Denom != remaining.Denom {
			return nil, validationFailedf(ErrIbcFeeDenomMismatch, "fee %s, sent %s", fee, sent)
		}
		if remaining.Amount, err = remaining.Amount.Sub(fee.Amount); err != nil {
			return nil, validationFailedf(ErrInsufficientForIbcFee, "fee %s, sent %s", fee, sent)
		}
	}

	transferOut := sent.WithAmount(remaining.Amount)
	if msg.MinAsset != nil {
		if err := msg.MinAsset.Validate(); err != nil {
			return nil, err
		}
		if msg.MinAsset.IsNative() != sent.IsNative() || msg.MinAsset.Denom() != remaining.Denom {
			return nil, validationFailedf(ErrActionDenomMismatch, "minimum %s, sent %s", msg.MinAsset, sent)
		}
	}
	switch {
	case msg.ExactOut:
		if msg.MinAsset == nil {
			return nil, validationFailed(ErrNoMinAssetProvided)
		}
		surplus, err := remaining.Amount.Sub(msg.MinAsset.Amount())
		if err != nil {
			return nil, validationFailedf(ErrRemainingAssetLessThanMinAsset, "minimum %s, remaining %s", msg.MinAsset, remaining)
		}
		if !surplus.IsZero() {
			refund := sent.WithAmount(surplus)
			send, err := refund.TransferMsg(recovery)
			if err != nil {
				return nil, err
			}
			resp.AddMessage(send).
				AddAttribute("exact_out_refund", refund.String())
		}
		transferOut = *msg.MinAsset

	case msg.MinAsset != nil:
		if remaining.Amount.LT(msg.MinAsset.Amount()) {
			return nil, validationFailedf(ErrRemainingAssetLessThanMinAsset, "minimum %s, remaining %s", msg.MinAsset, remaining)
		}
	}
	if transferOut.Amount().IsZero() {
		return nil, validationFailedf(ErrZeroAmount, "nothing left to transfer")
	}

	funds := []Asset{transferOut}
	if fee != nil {
		funds = append(funds, NativeAsset(*fee))
	}
	if err := conts.PutAction(ActionContinuation{RecoveryAddr: recovery, Funds: funds, Action: msg.Action}); err != nil {
		return nil, err
	}

	call, err := chain.NewWasmExecute(env.Contract.Address, ExecuteMsg{PostSwapAction: &PostSwapActionMsg{
		TransferOut:      transferOut,
		TimeoutTimestamp: msg.TimeoutTimestamp,
		Action:           msg.Action,
	}})
	if err != nil {
		return nil, err
	}

	deps.Logger.Info().
		Str("sender", sender).
		Str("transfer_out", transferOut.String()).
		Str("post_swap_action", msg.Action.kind()).
		Msg("dispatching action")

	return resp.
		AddSubMessage(chain.SubMsg{ID: ActionReplyID, Msg: call, ReplyOn: chain.ReplyAlways}).
		AddAttribute("transfer_out", transferOut.String()), nil
}

var errNoRefund = errors.New("nothing to refund")

// refundMsgs returns funds to the recovery address: one bank send for the
// native coins and a transfer per cw20 token. The string lists what went
// back.
func refundMsgs(rec string, funds []Asset) ([]chain.CosmosMsg, string, error) {
	var (
		native chain.Coins
		msgs   []chain.CosmosMsg
		parts  []string
	)
	for _, a := range funds {
		if a.Amount().IsZero() {
			continue
		}
		parts = append(parts, a.String())
		if a.IsNative() {
			var err error
			if native, err = native.Add(*a.Native); err != nil {
				return nil, "", err
			}
			continue
		}
		m, err := a.TransferMsg(rec)
		if err != nil {
			return nil, "", err
		}
		msgs = append(msgs, m)
	}
	if len(parts) == 0 {
		return nil, "", errNoRefund
	}
	if len(native) > 0 {
		msgs = append([]chain.CosmosMsg{chain.NewBankSend(rec, native...)}, msgs...)
	}
	return msgs, strings.Join(parts, ","), nil
}
