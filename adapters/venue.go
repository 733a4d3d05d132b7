// Package adapters holds the contracts the entry point talks to. There is a
// swap venue adapter that trades at fixed pool rates and an IBC transfer
// adapter that escrows outgoing transfers until their acknowledgement
// arrives. Cw20Token is a reference cw20 for token inputs.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	entrypoint "github.com/fortressi/entrypoint"
	"github.com/fortressi/entrypoint/chain"
)

// Pool trades DenomIn for DenomOut at Rate units of output per unit of
// input.
type Pool struct {
	ID       string          `json:"id" yaml:"id"`
	DenomIn  string          `json:"denom_in" yaml:"denom_in"`
	DenomOut string          `json:"denom_out" yaml:"denom_out"`
	Rate     decimal.Decimal `json:"rate" yaml:"rate"`
}

// FixedRateVenue is a swap adapter whose pools quote constant rates.
// Output is paid from the adapter's own balance, so a venue without
// liquidity fails the swap.
type FixedRateVenue struct {
	pools map[string]Pool
}

var _ chain.Contract = (*FixedRateVenue)(nil)

func NewFixedRateVenue(pools ...Pool) (*FixedRateVenue, error) {
	v := &FixedRateVenue{pools: make(map[string]Pool, len(pools))}
	for _, p := range pools {
		if _, ok := v.pools[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePool, p.ID)
		}
		if !p.Rate.IsPositive() {
			return nil, fmt.Errorf("%w: pool %s has rate %s", ErrInvalidRate, p.ID, p.Rate)
		}
		v.pools[p.ID] = p
	}
	return v, nil
}

func (v *FixedRateVenue) pool(op entrypoint.SwapOperation) (Pool, error) {
	p, ok := v.pools[op.Pool]
	if !ok {
		return Pool{}, fmt.Errorf("%w: %s", ErrUnknownPool, op.Pool)
	}
	if p.DenomIn != op.DenomIn || p.DenomOut != op.DenomOut {
		return Pool{}, fmt.Errorf("%w: pool %s trades %s->%s, operation asks %s->%s",
			ErrPoolMismatch, p.ID, p.DenomIn, p.DenomOut, op.DenomIn, op.DenomOut)
	}
	return p, nil
}

// quoteIn walks ops forward, rounding each hop down.
func (v *FixedRateVenue) quoteIn(in chain.Coin, ops []entrypoint.SwapOperation) (chain.Coin, error) {
	if len(ops) == 0 {
		return chain.Coin{}, ErrNoOperations
	}
	amount := decimal.NewFromBigInt(in.Amount.BigInt(), 0)
	denom := in.Denom
	for _, op := range ops {
		p, err := v.pool(op)
		if err != nil {
			return chain.Coin{}, err
		}
		if op.DenomIn != denom {
			return chain.Coin{}, fmt.Errorf("%w: hop %s takes %s, holding %s", ErrPoolMismatch, op.Pool, op.DenomIn, denom)
		}
		amount = amount.Mul(p.Rate).Floor()
		denom = p.DenomOut
	}
	return toCoin(denom, amount)
}

// quoteOut walks ops backwards from the wanted output, rounding each hop
// up so the quoted input always buys at least out.
func (v *FixedRateVenue) quoteOut(out chain.Coin, ops []entrypoint.SwapOperation) (chain.Coin, error) {
	if len(ops) == 0 {
		return chain.Coin{}, ErrNoOperations
	}
	amount := decimal.NewFromBigInt(out.Amount.BigInt(), 0)
	denom := out.Denom
	for i := len(ops) - 1; i >= 0; i-- {
		p, err := v.pool(ops[i])
		if err != nil {
			return chain.Coin{}, err
		}
		if ops[i].DenomOut != denom {
			return chain.Coin{}, fmt.Errorf("%w: hop %s yields %s, want %s", ErrPoolMismatch, ops[i].Pool, ops[i].DenomOut, denom)
		}
		amount = amount.Div(p.Rate).Ceil()
		denom = p.DenomIn
	}
	return toCoin(denom, amount)
}

func toCoin(denom string, amount decimal.Decimal) (chain.Coin, error) {
	n, err := chain.Uint128FromBig(amount.BigInt())
	if err != nil {
		return chain.Coin{}, err
	}
	return chain.Coin{Denom: denom, Amount: n}, nil
}

// Execute performs SwapAdapterExecuteMsg.Swap on the single attached coin
// and pays the output back to the caller. A cw20 input arrives through
// Receive; its denom is the token contract and the output goes to the
// hook's sender. The output is returned as response data, encoded as an
// entrypoint.Asset.
func (v *FixedRateVenue) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg entrypoint.SwapAdapterExecuteMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}

	var (
		in        chain.Coin
		recipient = info.Sender
	)
	switch {
	case msg.Swap != nil:
		if len(info.Funds) != 1 {
			return nil, fmt.Errorf("%w: attached %s", ErrInvalidFunds, info.Funds)
		}
		in = info.Funds[0]
	case msg.Receive != nil:
		if len(info.Funds) != 0 {
			return nil, fmt.Errorf("%w: cw20 hook came with %s attached", ErrInvalidFunds, info.Funds)
		}
		hook := msg.Receive
		var inner entrypoint.SwapAdapterExecuteMsg
		if err := strictDecode(hook.Msg, &inner); err != nil {
			return nil, err
		}
		if inner.Swap == nil {
			return nil, ErrUnsupportedMsg
		}
		msg.Swap = inner.Swap
		in, recipient = chain.Coin{Denom: info.Sender, Amount: hook.Amount}, hook.Sender
	default:
		return nil, ErrUnsupportedMsg
	}
	ops := msg.Swap.Operations
	if len(ops) == 0 {
		return nil, ErrNoOperations
	}
	if in.Denom != ops[0].DenomIn {
		return nil, fmt.Errorf("%w: got %s, route starts with %s", ErrInvalidFunds, in, ops[0].DenomIn)
	}

	out, err := v.quoteIn(in, ops)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, fmt.Errorf("%w: %s through %d hops", ErrSwapOutputZero, in, len(ops))
	}
	data, err := json.Marshal(entrypoint.NativeAsset(out))
	if err != nil {
		return nil, err
	}

	deps.Logger.Debug().
		Str("in", in.String()).
		Str("out", out.String()).
		Int("hops", len(ops)).
		Msg("swap")

	return chain.NewResponse().
		AddMessage(chain.NewBankSend(recipient, out)).
		AddAttribute("action", "dispatch_swap").
		AddAttribute("swap_in", in.String()).
		AddAttribute("swap_out", out.String()).
		SetData(data), nil
}

func (v *FixedRateVenue) Reply(context.Context, chain.Deps, chain.Env, chain.Reply) (*chain.Response, error) {
	return nil, fmt.Errorf("reply: %w", chain.ErrUnsupported)
}

// Query answers the simulate queries of entrypoint.SwapAdapterQueryMsg.
func (v *FixedRateVenue) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg entrypoint.SwapAdapterQueryMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.SimulateSwapExactAssetIn != nil:
		q := msg.SimulateSwapExactAssetIn
		if err := q.AssetIn.Validate(); err != nil {
			return nil, err
		}
		out, err := v.quoteIn(q.AssetIn.AsCoin(), q.SwapOperations)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entrypoint.NativeAsset(out))
	case msg.SimulateSwapExactAssetOut != nil:
		q := msg.SimulateSwapExactAssetOut
		out, err := q.AssetOut.Coin()
		if err != nil {
			return nil, err
		}
		in, err := v.quoteOut(out, q.SwapOperations)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entrypoint.NativeAsset(in))
	default:
		return nil, ErrUnsupportedMsg
	}
}

// Pools returns the configured pools ordered by id.
func (v *FixedRateVenue) Pools() []Pool {
	out := make([]Pool, 0, len(v.pools))
	for _, p := range v.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", chain.ErrInvalidMessage, err)
	}
	return nil
}
