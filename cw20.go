package entrypoint

import (
	"github.com/fortressi/entrypoint/chain"
)

// Cw20ExecuteMsg is the subset of the cw20 token interface the entry point
// and the reference token speak.
type Cw20ExecuteMsg struct {
	Transfer *Cw20Transfer `json:"transfer,omitempty"`
	Send     *Cw20Send     `json:"send,omitempty"`
}

type Cw20Transfer struct {
	Recipient string        `json:"recipient"`
	Amount    chain.Uint128 `json:"amount"`
}

// Cw20Send moves Amount to Contract and then executes Contract with a
// Cw20ReceiveMsg carrying Msg.
type Cw20Send struct {
	Contract string        `json:"contract"`
	Amount   chain.Uint128 `json:"amount"`
	Msg      []byte        `json:"msg"`
}

// Cw20ReceiveMsg is the hook a token delivers to the contract it sent
// tokens to. The caller of the hook is the token contract; Sender is the
// account the tokens came from.
type Cw20ReceiveMsg struct {
	Sender string        `json:"sender"`
	Amount chain.Uint128 `json:"amount"`
	Msg    []byte        `json:"msg"`
}

// Cw20HookMsg is what a cw20 send to the entry point may ask for.
type Cw20HookMsg struct {
	SwapAndAction *SwapAndActionMsg `json:"swap_and_action,omitempty"`
	Action        *ActionMsg        `json:"action,omitempty"`
}

type Cw20QueryMsg struct {
	Balance *Cw20BalanceQuery `json:"balance,omitempty"`
}

type Cw20BalanceQuery struct {
	Address string `json:"address"`
}

type Cw20BalanceResponse struct {
	Balance chain.Uint128 `json:"balance"`
}
