package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	entrypoint "github.com/fortressi/entrypoint"
	"github.com/fortressi/entrypoint/chain"
)

// InFlightTransfer is an outgoing transfer waiting for its lifecycle
// callback. The coin stays escrowed in the adapter until then.
type InFlightTransfer struct {
	Channel          string     `json:"channel"`
	Sequence         uint64     `json:"sequence"`
	RecoverAddress   string     `json:"recover_address"`
	Receiver         string     `json:"receiver"`
	Coin             chain.Coin `json:"coin"`
	Memo             string     `json:"memo,omitempty"`
	TimeoutTimestamp uint64     `json:"timeout_timestamp"`
}

var (
	nextSequence = chain.NewMap[uint64]("next_sequence")
	inFlight     = chain.NewMap[InFlightTransfer]("in_flight")
)

func transferKey(channel string, sequence uint64) string {
	return channel + "/" + strconv.FormatUint(sequence, 10)
}

// NewIbcTransferAdapter returns the IBC transfer adapter contract.
// Lifecycle callbacks are only accepted from ibcModule, the address that
// stands in for the chain's IBC hooks.
func NewIbcTransferAdapter(ibcModule string) *chain.ContractFunc {
	a := &ibcTransferAdapter{ibcModule: ibcModule}
	return chain.NewContractFunc(a.execute, nil, a.query)
}

type ibcTransferAdapter struct {
	ibcModule string
}

func (a *ibcTransferAdapter) execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg entrypoint.IbcAdapterExecuteMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.IbcTransfer != nil:
		return a.transfer(deps, env, info, *msg.IbcTransfer)
	case msg.IbcLifecycleComplete != nil:
		if info.Sender != a.ibcModule {
			return nil, fmt.Errorf("%w: %s may not complete ibc lifecycles", ErrUnauthorized, info.Sender)
		}
		return a.complete(deps, *msg.IbcLifecycleComplete)
	default:
		return nil, ErrUnsupportedMsg
	}
}

func (a *ibcTransferAdapter) transfer(deps chain.Deps, env chain.Env, info chain.MessageInfo, msg entrypoint.IbcTransferMsg) (*chain.Response, error) {
	if info.Funds.AmountOf(msg.Coin.Denom).LT(msg.Coin.Amount) {
		return nil, fmt.Errorf("%w: transfer of %s, attached %s", ErrInvalidFunds, msg.Coin, info.Funds)
	}
	if msg.TimeoutTimestamp <= env.Block.TimeNanos() {
		return nil, fmt.Errorf("%w: %d", ErrPacketTimeout, msg.TimeoutTimestamp)
	}
	channel := msg.Info.SourceChannel
	seq, _, err := nextSequence.MayLoad(deps.Storage, channel)
	if err != nil {
		return nil, err
	}
	seq++
	if err := nextSequence.Save(deps.Storage, channel, seq); err != nil {
		return nil, err
	}

	t := InFlightTransfer{
		Channel:          channel,
		Sequence:         seq,
		RecoverAddress:   msg.Info.RecoverAddress,
		Receiver:         msg.Info.Receiver,
		Coin:             msg.Coin,
		Memo:             msg.Info.Memo,
		TimeoutTimestamp: msg.TimeoutTimestamp,
	}
	if err := inFlight.Save(deps.Storage, transferKey(channel, seq), t); err != nil {
		return nil, err
	}

	deps.Logger.Info().
		Str("channel", channel).
		Uint64("sequence", seq).
		Str("receiver", t.Receiver).
		Str("coin", t.Coin.String()).
		Msg("ibc transfer sent")

	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "dispatch_ibc_transfer").
		AddAttribute("channel", channel).
		AddAttribute("sequence", strconv.FormatUint(seq, 10)).
		AddAttribute("receiver", t.Receiver).
		AddAttribute("coin", t.Coin.String()).
		SetData(data), nil
}

// complete settles a transfer. A failed acknowledgement or a timeout
// returns the escrowed coin to the recover address.
func (a *ibcTransferAdapter) complete(deps chain.Deps, msg entrypoint.IbcLifecycleComplete) (*chain.Response, error) {
	var (
		channel  string
		sequence uint64
		success  bool
		outcome  string
	)
	switch {
	case msg.IbcAck != nil:
		channel, sequence, success = msg.IbcAck.Channel, msg.IbcAck.Sequence, msg.IbcAck.Success
		outcome = "ack_failure"
		if success {
			outcome = "ack_success"
		}
	case msg.IbcTimeout != nil:
		channel, sequence, outcome = msg.IbcTimeout.Channel, msg.IbcTimeout.Sequence, "timeout"
	default:
		return nil, ErrUnsupportedMsg
	}

	key := transferKey(channel, sequence)
	t, err := inFlight.Load(deps.Storage, key)
	if errors.Is(err, chain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransfer, key)
	}
	if err != nil {
		return nil, err
	}
	if err := inFlight.Remove(deps.Storage, key); err != nil {
		return nil, err
	}

	resp := chain.NewResponse().
		AddAttribute("action", "ibc_lifecycle_complete").
		AddAttribute("outcome", outcome).
		AddAttribute("channel", channel).
		AddAttribute("sequence", strconv.FormatUint(sequence, 10))
	if !success {
		resp.AddMessage(chain.NewBankSend(t.RecoverAddress, t.Coin)).
			AddAttribute("refund", t.RecoverAddress+":"+t.Coin.String())
		deps.Logger.Warn().
			Str("outcome", outcome).
			Str("recover_address", t.RecoverAddress).
			Str("coin", t.Coin.String()).
			Msg("ibc transfer failed, returning funds")
	}
	return resp, nil
}

func (a *ibcTransferAdapter) query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg entrypoint.IbcAdapterQueryMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.InProgressIbcTransfer == nil {
		return nil, ErrUnsupportedMsg
	}
	q := msg.InProgressIbcTransfer
	t, err := inFlight.Load(deps.Storage, transferKey(q.ChannelID, q.SequenceID))
	if errors.Is(err, chain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownTransfer, q.ChannelID, q.SequenceID)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(t)
}
