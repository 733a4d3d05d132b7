package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	entrypoint "github.com/fortressi/entrypoint"
	"github.com/fortressi/entrypoint/chain"
)

// Cw20InstantiateMsg seeds the token's balances.
type Cw20InstantiateMsg struct {
	InitialBalances []Cw20Balance `json:"initial_balances"`
}

type Cw20Balance struct {
	Address string        `json:"address"`
	Amount  chain.Uint128 `json:"amount"`
}

const sendHookReplyID = 1

var cw20Balances = chain.NewMap[chain.Uint128]("cw20_balance")

// Cw20Token is a minimal cw20 contract: balances, transfer and send. Send
// calls the receiving contract's receive hook as a sub-message and passes
// the hook's result data back as its own.
type Cw20Token struct{}

var (
	_ chain.Contract     = Cw20Token{}
	_ chain.Instantiator = Cw20Token{}
)

func (Cw20Token) Instantiate(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg Cw20InstantiateMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	for _, b := range msg.InitialBalances {
		if err := creditCw20(deps.Storage, b.Address, b.Amount); err != nil {
			return nil, err
		}
	}
	return chain.NewResponse().AddAttribute("action", "instantiate_cw20"), nil
}

func (Cw20Token) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg entrypoint.Cw20ExecuteMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Transfer != nil:
		t := msg.Transfer
		if err := moveCw20(deps.Storage, info.Sender, t.Recipient, t.Amount); err != nil {
			return nil, err
		}
		return chain.NewResponse().
			AddAttribute("action", "transfer").
			AddAttribute("from", info.Sender).
			AddAttribute("to", t.Recipient).
			AddAttribute("amount", t.Amount.String()), nil

	case msg.Send != nil:
		s := msg.Send
		if err := moveCw20(deps.Storage, info.Sender, s.Contract, s.Amount); err != nil {
			return nil, err
		}
		hook, err := chain.NewWasmExecute(s.Contract, struct {
			Receive entrypoint.Cw20ReceiveMsg `json:"receive"`
		}{entrypoint.Cw20ReceiveMsg{Sender: info.Sender, Amount: s.Amount, Msg: s.Msg}})
		if err != nil {
			return nil, err
		}
		return chain.NewResponse().
			AddSubMessage(chain.SubMsg{ID: sendHookReplyID, Msg: hook, ReplyOn: chain.ReplySuccess}).
			AddAttribute("action", "send").
			AddAttribute("from", info.Sender).
			AddAttribute("to", s.Contract).
			AddAttribute("amount", s.Amount.String()), nil

	default:
		return nil, ErrUnsupportedMsg
	}
}

func (Cw20Token) Reply(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	if reply.ID != sendHookReplyID || !reply.Result.IsOk() {
		return nil, fmt.Errorf("%w: reply %d", ErrUnsupportedMsg, reply.ID)
	}
	return chain.NewResponse().SetData(reply.Result.Ok.Data), nil
}

func (Cw20Token) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg entrypoint.Cw20QueryMsg
	if err := strictDecode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Balance == nil {
		return nil, ErrUnsupportedMsg
	}
	bal, _, err := cw20Balances.MayLoad(deps.Storage, msg.Balance.Address)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entrypoint.Cw20BalanceResponse{Balance: bal})
}

func creditCw20(s chain.KVStore, addr string, amount chain.Uint128) error {
	bal, _, err := cw20Balances.MayLoad(s, addr)
	if err != nil {
		return err
	}
	if bal, err = bal.Add(amount); err != nil {
		return err
	}
	return cw20Balances.Save(s, addr, bal)
}

func moveCw20(s chain.KVStore, from, to string, amount chain.Uint128) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidFunds)
	}
	bal, _, err := cw20Balances.MayLoad(s, from)
	if err != nil {
		return err
	}
	left, err := bal.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s, wants to move %s", ErrInsufficientBalance, from, bal, amount)
	}
	if err := cw20Balances.Save(s, from, left); err != nil {
		return err
	}
	return creditCw20(s, to, amount)
}
