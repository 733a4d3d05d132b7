package entrypoint

import (
	"encoding/json"
	"fmt"

	"github.com/fortressi/entrypoint/chain"
)

// Asset is either a native coin or a cw20 token amount.
type Asset struct {
	Native *chain.Coin `json:"native,omitempty" yaml:"native,omitempty"`
	Cw20   *Cw20Coin   `json:"cw20,omitempty" yaml:"cw20,omitempty"`
}

// Cw20Coin is an amount of a cw20 token, identified by its contract.
type Cw20Coin struct {
	Address string        `json:"address" yaml:"address"`
	Amount  chain.Uint128 `json:"amount" yaml:"amount"`
}

// NativeAsset wraps a coin.
func NativeAsset(c chain.Coin) Asset {
	return Asset{Native: &c}
}

func Cw20Asset(token string, amount chain.Uint128) Asset {
	return Asset{Cw20: &Cw20Coin{Address: token, Amount: amount}}
}

// Validate checks that exactly one variant is set.
func (a Asset) Validate() error {
	if (a.Native == nil) == (a.Cw20 == nil) {
		return validationFailed(ErrInvalidAsset)
	}
	return nil
}

func (a Asset) IsNative() bool {
	return a.Native != nil
}

// Denom returns the native denom or the cw20 contract address.
func (a Asset) Denom() string {
	switch {
	case a.Native != nil:
		return a.Native.Denom
	case a.Cw20 != nil:
		return a.Cw20.Address
	default:
		return ""
	}
}

func (a Asset) Amount() chain.Uint128 {
	switch {
	case a.Native != nil:
		return a.Native.Amount
	case a.Cw20 != nil:
		return a.Cw20.Amount
	default:
		return chain.ZeroUint128()
	}
}

// AsCoin returns Denom and Amount as a coin. For cw20 assets the denom is
// the token contract, so the result is only good for arithmetic and
// matching against swap routes, never for a bank send.
func (a Asset) AsCoin() chain.Coin {
	return chain.Coin{Denom: a.Denom(), Amount: a.Amount()}
}

// WithAmount returns a copy of a holding amount instead.
func (a Asset) WithAmount(amount chain.Uint128) Asset {
	switch {
	case a.Native != nil:
		c := *a.Native
		c.Amount = amount
		return Asset{Native: &c}
	case a.Cw20 != nil:
		c := *a.Cw20
		c.Amount = amount
		return Asset{Cw20: &c}
	default:
		return a
	}
}

// Coin returns the native coin, or ErrNonNativeAsset.
func (a Asset) Coin() (chain.Coin, error) {
	if a.Native == nil {
		return chain.Coin{}, validationFailedf(ErrNonNativeAsset, "%s", a)
	}
	return *a.Native, nil
}

// TransferMsg builds the message moving a from the contract to address.
func (a Asset) TransferMsg(to string) (chain.CosmosMsg, error) {
	switch {
	case a.Native != nil:
		return chain.NewBankSend(to, *a.Native), nil
	case a.Cw20 != nil:
		return chain.NewWasmExecute(a.Cw20.Address, Cw20ExecuteMsg{
			Transfer: &Cw20Transfer{Recipient: to, Amount: a.Cw20.Amount},
		})
	default:
		return chain.CosmosMsg{}, validationFailed(ErrInvalidAsset)
	}
}

// SendMsg builds the call of contract with msg that hands a over with it:
// native coins ride along as funds, cw20 tokens go through the token's
// send, which delivers msg wrapped in a receive hook.
func (a Asset) SendMsg(contract string, msg any) (chain.CosmosMsg, error) {
	switch {
	case a.Native != nil:
		return chain.NewWasmExecute(contract, msg, *a.Native)
	case a.Cw20 != nil:
		raw, ok := msg.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(msg); err != nil {
				return chain.CosmosMsg{}, fmt.Errorf("encode hook for %s: %w", contract, err)
			}
		}
		return chain.NewWasmExecute(a.Cw20.Address, Cw20ExecuteMsg{
			Send: &Cw20Send{Contract: contract, Amount: a.Cw20.Amount, Msg: raw},
		})
	default:
		return chain.CosmosMsg{}, validationFailed(ErrInvalidAsset)
	}
}

func (a Asset) String() string {
	switch {
	case a.Native != nil:
		return a.Native.String()
	case a.Cw20 != nil:
		return fmt.Sprintf("%s%s", a.Cw20.Amount, a.Cw20.Address)
	default:
		return "<empty asset>"
	}
}
