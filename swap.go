package entrypoint

import (
	"context"

	"github.com/fortressi/entrypoint/chain"
)

// SwapOperation is one hop of a route through a venue's pools.
type SwapOperation struct {
	Pool     string `json:"pool" yaml:"pool"`
	DenomIn  string `json:"denom_in" yaml:"denom_in"`
	DenomOut string `json:"denom_out" yaml:"denom_out"`
	// Interface carries venue specific routing data, passed through untouched.
	Interface []byte `json:"interface,omitempty" yaml:"interface,omitempty"`
}

// Swap is exactly one of exact-in or exact-out.
type Swap struct {
	SwapExactAssetIn  *SwapExactAssetIn  `json:"swap_exact_asset_in,omitempty" yaml:"swap_exact_asset_in,omitempty"`
	SwapExactAssetOut *SwapExactAssetOut `json:"swap_exact_asset_out,omitempty" yaml:"swap_exact_asset_out,omitempty"`
}

// SwapExactAssetIn swaps everything it is given.
type SwapExactAssetIn struct {
	SwapVenueName string          `json:"swap_venue_name" yaml:"swap_venue_name"`
	Operations    []SwapOperation `json:"operations" yaml:"operations"`
}

// SwapExactAssetOut swaps only as much input as the venue needs to produce
// the target output. The surplus goes to RefundAddress.
type SwapExactAssetOut struct {
	SwapVenueName string          `json:"swap_venue_name" yaml:"swap_venue_name"`
	Operations    []SwapOperation `json:"operations" yaml:"operations"`
	RefundAddress string          `json:"refund_address,omitempty" yaml:"refund_address,omitempty"`
}

func (s Swap) validate() error {
	if (s.SwapExactAssetIn == nil) == (s.SwapExactAssetOut == nil) {
		return validationFailed(ErrInvalidSwap)
	}
	return nil
}

func (s Swap) VenueName() string {
	if s.SwapExactAssetOut != nil {
		return s.SwapExactAssetOut.SwapVenueName
	}
	if s.SwapExactAssetIn != nil {
		return s.SwapExactAssetIn.SwapVenueName
	}
	return ""
}

func (s Swap) Operations() []SwapOperation {
	if s.SwapExactAssetOut != nil {
		return s.SwapExactAssetOut.Operations
	}
	if s.SwapExactAssetIn != nil {
		return s.SwapExactAssetIn.Operations
	}
	return nil
}

// ValidateSwapOperations checks that ops form a route from denomIn to
// denomOut: non-empty, each hop starting where the previous one ended.
func ValidateSwapOperations(ops []SwapOperation, denomIn, denomOut string) error {
	if len(ops) == 0 {
		return validationFailed(ErrSwapOperationsEmpty)
	}
	if ops[0].DenomIn != denomIn {
		return validationFailedf(ErrSwapOperationsAssetInMismatch, "route starts with %s, swap input is %s", ops[0].DenomIn, denomIn)
	}
	for i := 1; i < len(ops); i++ {
		if ops[i].DenomIn != ops[i-1].DenomOut {
			return validationFailedf(ErrSwapOperationsNotChained, "hop %d takes %s after hop %d produced %s",
				i, ops[i].DenomIn, i-1, ops[i-1].DenomOut)
		}
	}
	if last := ops[len(ops)-1]; last.DenomOut != denomOut {
		return validationFailedf(ErrSwapOperationsAssetOutMismatch, "route ends with %s, minimum asset is %s", last.DenomOut, denomOut)
	}
	return nil
}

// Swap adapter wire messages.

// SwapAdapterExecuteMsg is what a venue adapter accepts. A cw20 input
// arrives as Receive, whose Msg is itself a SwapAdapterExecuteMsg with Swap
// set.
type SwapAdapterExecuteMsg struct {
	Swap    *SwapAdapterSwap `json:"swap,omitempty"`
	Receive *Cw20ReceiveMsg  `json:"receive,omitempty"`
}

type SwapAdapterSwap struct {
	Operations []SwapOperation `json:"operations"`
}

type SwapAdapterQueryMsg struct {
	SimulateSwapExactAssetIn  *SimulateSwapExactAssetIn  `json:"simulate_swap_exact_asset_in,omitempty"`
	SimulateSwapExactAssetOut *SimulateSwapExactAssetOut `json:"simulate_swap_exact_asset_out,omitempty"`
}

type SimulateSwapExactAssetIn struct {
	AssetIn        Asset           `json:"asset_in"`
	SwapOperations []SwapOperation `json:"swap_operations"`
}

type SimulateSwapExactAssetOut struct {
	AssetOut       Asset           `json:"asset_out"`
	SwapOperations []SwapOperation `json:"swap_operations"`
}

// SimulateExactOut asks adapter how much input produces out through ops.
func SimulateExactOut(ctx context.Context, q chain.Querier, adapter string, ops []SwapOperation, out Asset) (Asset, error) {
	var in Asset
	err := q.QueryWasmSmart(ctx, adapter, SwapAdapterQueryMsg{
		SimulateSwapExactAssetOut: &SimulateSwapExactAssetOut{AssetOut: out, SwapOperations: ops},
	}, &in)
	return in, err
}
