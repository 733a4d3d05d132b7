package entrypoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortressi/entrypoint/chain"
)

// Values of the "status" attribute emitted by the replies.
const (
	StatusSwapSuccessful   = "swap_successful"
	StatusSwapFailed       = "swap_failed"
	StatusActionSuccessful = "action_successful"
	StatusActionFailed     = "action_failed"
)

// onSwapOutput runs inside the user swap sub-call once the adapter swap
// succeeded. Returning an error here discards the swap.
func (e *EntryPoint) onSwapOutput(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	if !reply.Result.IsOk() {
		return nil, inconsistent(fmt.Errorf("swap output reply for a failed swap: %s", reply.Result.Err))
	}
	rec, err := NewContinuationStore(deps.Storage).PeekSwap()
	if err != nil {
		return nil, err
	}

	out, err := decodeSwapOutput(reply.Result.Ok.Data)
	if err != nil {
		return nil, err
	}
	if out.Denom != rec.MinAsset.Denom() {
		return nil, validationFailedf(ErrAdapterOutputMismatch, "got %s, want %s", out, rec.MinAsset.Denom())
	}
	held, err := deps.Querier.QueryBalance(ctx, env.Contract.Address, out.Denom)
	if err != nil {
		return nil, err
	}
	if held.Amount.LT(out.Amount) {
		return nil, validationFailedf(ErrAdapterOutputMismatch, "adapter reported %s, contract holds %s", out, held)
	}
	if out.Amount.LT(rec.MinAsset.Amount()) {
		return nil, validationFailedf(ErrReceivedLessThanMinimum, "received %s, minimum %s", out, rec.MinAsset)
	}

	data, err := json.Marshal(NativeAsset(out))
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		SetData(data).
		AddAttribute("action", "swap_output").
		AddAttribute("swap_output", out.String()), nil
}

func decodeSwapOutput(data []byte) (chain.Coin, error) {
	if len(data) == 0 {
		return chain.Coin{}, validationFailed(ErrAdapterOutputMissing)
	}
	var out Asset
	if err := json.Unmarshal(data, &out); err != nil {
		return chain.Coin{}, validationFailedf(ErrAdapterOutputMissing, "%v", err)
	}
	if err := out.Validate(); err != nil {
		return chain.Coin{}, err
	}
	return out.Coin()
}

// onUserSwapResult consumes the swap continuation. A failed swap refunds
// the original funds. A successful one pays affiliates, records the action
// continuation and dispatches the post swap action.
func (e *EntryPoint) onUserSwapResult(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	conts := NewContinuationStore(deps.Storage)
	rec, err := conts.TakeSwap()
	if err != nil {
		return nil, err
	}
	resp := chain.NewResponse().AddAttribute("action", "swap_and_action_swap_reply")

	if !reply.Result.IsOk() {
		refunds, refunded, err := refundMsgs(rec.RecoveryAddr, rec.Funds)
		if err != nil && !errors.Is(err, errNoRefund) {
			return nil, err
		}
		resp.AddMessages(refunds...)
		deps.Logger.Warn().
			Str("error", reply.Result.Err).
			Str("recovery_addr", rec.RecoveryAddr).
			Str("refund", refunded).
			Msg("user swap failed, refunding")
		return resp.
			AddAttribute("status", StatusSwapFailed).
			AddAttribute("error", reply.Result.Err).
			AddAttribute("refund", refunded), nil
	}

	out, err := decodeSwapOutput(reply.Result.Ok.Data)
	if err != nil {
		return nil, inconsistent(err)
	}

	fees, remainder, err := ComputeAffiliateFees(out.Amount, rec.Affiliates)
	if err != nil {
		return nil, err
	}
	for _, fee := range fees {
		if fee.Amount.IsZero() {
			continue
		}
		coin := chain.Coin{Denom: out.Denom, Amount: fee.Amount}
		resp.AddMessage(chain.NewBankSend(fee.Address, coin)).
			AddAttribute("affiliate_fee", fee.Address+":"+coin.String())
	}

	transferOut := NativeAsset(chain.Coin{Denom: out.Denom, Amount: remainder})
	funds := []Asset{transferOut}
	fee, err := rec.PostSwapAction.ibcFee()
	if err != nil {
		return nil, err
	}
	if fee != nil {
		funds = append(funds, NativeAsset(*fee))
	}
	if err := conts.PutAction(ActionContinuation{
		RecoveryAddr: rec.RecoveryAddr,
		Funds:        funds,
		Action:       rec.PostSwapAction,
	}); err != nil {
		return nil, err
	}

	call, err := chain.NewWasmExecute(env.Contract.Address, ExecuteMsg{PostSwapAction: &PostSwapActionMsg{
		TransferOut:      transferOut,
		TimeoutTimestamp: rec.TimeoutTimestamp,
		Action:           rec.PostSwapAction,
	}})
	if err != nil {
		return nil, err
	}

	deps.Logger.Info().
		Str("swap_output", out.String()).
		Str("transfer_out", transferOut.String()).
		Int("affiliates", len(fees)).
		Msg("user swap succeeded, dispatching post swap action")

	return resp.
		AddSubMessage(chain.SubMsg{ID: ActionReplyID, Msg: call, ReplyOn: chain.ReplyAlways}).
		AddAttribute("status", StatusSwapSuccessful).
		AddAttribute("swap_output", out.String()).
		AddAttribute("transfer_out", transferOut.String()), nil
}

// onActionResult consumes the action continuation and refunds its funds
// when the action failed.
func (e *EntryPoint) onActionResult(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	rec, err := NewContinuationStore(deps.Storage).TakeAction()
	if err != nil {
		return nil, err
	}
	resp := chain.NewResponse().AddAttribute("action", "swap_and_action_action_reply")

	if reply.Result.IsOk() {
		return resp.AddAttribute("status", StatusActionSuccessful), nil
	}

	refunds, refunded, err := refundMsgs(rec.RecoveryAddr, rec.Funds)
	if err != nil && !errors.Is(err, errNoRefund) {
		return nil, err
	}
	resp.AddMessages(refunds...)
	deps.Logger.Warn().
		Str("error", reply.Result.Err).
		Str("recovery_addr", rec.RecoveryAddr).
		Str("refund", refunded).
		Msg("post swap action failed, refunding")
	return resp.
		AddAttribute("status", StatusActionFailed).
		AddAttribute("error", reply.Result.Err).
		AddAttribute("refund", refunded), nil
}
