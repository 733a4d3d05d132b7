package adapters

import "errors"

var (
	ErrUnknownPool         = errors.New("unknown pool")
	ErrPoolMismatch        = errors.New("swap operation does not match pool denoms")
	ErrInvalidRate         = errors.New("pool rate must be positive")
	ErrDuplicatePool       = errors.New("duplicate pool id")
	ErrInvalidFunds        = errors.New("attached funds do not match the swap input")
	ErrSwapOutputZero      = errors.New("swap would produce nothing")
	ErrNoOperations        = errors.New("no swap operations")
	ErrUnknownTransfer     = errors.New("unknown ibc transfer")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrPacketTimeout       = errors.New("packet timeout already passed")
	ErrUnsupportedMsg      = errors.New("unsupported message")
	ErrInsufficientBalance = errors.New("insufficient cw20 balance")
)
