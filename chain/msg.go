package chain

import (
	"encoding/json"
	"fmt"
)

// CosmosMsg is a message a contract asks the runtime to dispatch on its
// behalf. Exactly one field is set.
type CosmosMsg struct {
	Bank *BankSend    `json:"bank,omitempty"`
	Wasm *WasmExecute `json:"wasm,omitempty"`
}

// BankSend moves native coins from the dispatching contract to ToAddress.
type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    Coins  `json:"amount"`
}

// WasmExecute calls another contract, attaching Funds from the
// dispatching contract.
type WasmExecute struct {
	ContractAddr string          `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        Coins           `json:"funds"`
}

// NewBankSend builds a bank send of coins to the given address.
func NewBankSend(to string, coins ...Coin) CosmosMsg {
	return CosmosMsg{Bank: &BankSend{ToAddress: to, Amount: Coins(coins)}}
}

// NewWasmExecute builds a contract call, JSON encoding msg.
func NewWasmExecute(contract string, msg any, funds ...Coin) (CosmosMsg, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return CosmosMsg{}, fmt.Errorf("encode message for %s: %w", contract, err)
	}
	return CosmosMsg{Wasm: &WasmExecute{ContractAddr: contract, Msg: raw, Funds: Coins(funds)}}, nil
}

func (m CosmosMsg) kind() string {
	switch {
	case m.Bank != nil:
		return "bank"
	case m.Wasm != nil:
		return "wasm"
	default:
		return "empty"
	}
}

// ReplyOn controls when the dispatching contract gets a Reply for a
// sub-message.
type ReplyOn int

const (
	ReplyNever ReplyOn = iota
	ReplySuccess
	ReplyError
	ReplyAlways
)

func (r ReplyOn) String() string {
	switch r {
	case ReplyNever:
		return "never"
	case ReplySuccess:
		return "success"
	case ReplyError:
		return "error"
	case ReplyAlways:
		return "always"
	default:
		return fmt.Sprintf("ReplyOn(%d)", int(r))
	}
}

func (r ReplyOn) onSuccess() bool { return r == ReplySuccess || r == ReplyAlways }
func (r ReplyOn) onError() bool   { return r == ReplyError || r == ReplyAlways }

// SubMsg is a dispatched message together with its reply policy. Each
// sub-message runs against its own cached branch of state: the branch is
// committed when the message succeeds and discarded when it fails.
type SubMsg struct {
	ID      uint64    `json:"id"`
	Msg     CosmosMsg `json:"msg"`
	ReplyOn ReplyOn   `json:"reply_on"`
}

// Attribute is a key/value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event groups attributes emitted by one contract call or bank transfer.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Value returns the last value recorded for key.
func (e Event) Value(key string) (string, bool) {
	for i := len(e.Attributes) - 1; i >= 0; i-- {
		if e.Attributes[i].Key == key {
			return e.Attributes[i].Value, true
		}
	}
	return "", false
}

// SubMsgResponse is what a successful sub-message returns to the reply.
type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// SubMsgResult is either Ok or carries the failure string in Err.
type SubMsgResult struct {
	Ok  *SubMsgResponse `json:"ok,omitempty"`
	Err string          `json:"error,omitempty"`
}

func (r SubMsgResult) IsOk() bool {
	return r.Ok != nil
}

// Reply is delivered to a contract after one of its sub-messages finishes.
type Reply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}

// Response is the outcome of a contract entry point.
type Response struct {
	Messages   []SubMsg
	Attributes []Attribute
	Events     []Event
	Data       []byte
}

func NewResponse() *Response {
	return &Response{}
}

// AddMessage queues msg with no reply.
func (r *Response) AddMessage(msg CosmosMsg) *Response {
	r.Messages = append(r.Messages, SubMsg{Msg: msg, ReplyOn: ReplyNever})
	return r
}

// AddMessages queues msgs with no reply, in order.
func (r *Response) AddMessages(msgs ...CosmosMsg) *Response {
	for _, msg := range msgs {
		r.AddMessage(msg)
	}
	return r
}

// AddSubMessage queues a message that may produce a reply.
func (r *Response) AddSubMessage(sub SubMsg) *Response {
	r.Messages = append(r.Messages, sub)
	return r
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) AddEvent(ev Event) *Response {
	r.Events = append(r.Events, ev)
	return r
}

// SetData sets the bytes returned to the caller (or to the caller's reply).
func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}
