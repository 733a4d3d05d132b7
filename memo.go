package entrypoint

import (
	"encoding/json"
	"fmt"
)

// WasmMemo is the ibc-hooks memo that makes the receiving chain call
// Contract with Msg once the transferred funds arrive.
type WasmMemo struct {
	Wasm WasmHook `json:"wasm"`
}

type WasmHook struct {
	Contract string     `json:"contract"`
	Msg      ExecuteMsg `json:"msg"`
}

// BuildWasmMemo encodes a memo that runs req on the entry point deployed at
// contract on the destination chain.
func BuildWasmMemo(contract string, req SwapAndActionMsg) (string, error) {
	if contract == "" {
		return "", validationFailedf(ErrInvalidAddress, "memo contract is empty")
	}
	if err := req.UserSwap.validate(); err != nil {
		return "", err
	}
	if err := req.PostSwapAction.validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(WasmMemo{Wasm: WasmHook{Contract: contract, Msg: ExecuteMsg{SwapAndAction: &req}}})
	if err != nil {
		return "", fmt.Errorf("encode memo: %w", err)
	}
	return string(data), nil
}

// ParseWasmMemo decodes a memo produced by BuildWasmMemo.
func ParseWasmMemo(memo string) (WasmMemo, error) {
	var m WasmMemo
	if err := decode([]byte(memo), &m); err != nil {
		return m, err
	}
	if m.Wasm.Msg.SwapAndAction == nil {
		return m, validationFailedf(ErrInvalidMessage, "memo does not carry swap_and_action")
	}
	return m, nil
}
