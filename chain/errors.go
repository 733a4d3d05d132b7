package chain

import (
	"errors"
	"fmt"
)

var (
	ErrOverflow          = errors.New("arithmetic overflow")
	ErrDivideByZero      = errors.New("divide by zero")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCoin       = errors.New("invalid coin")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrUnknownContract   = errors.New("unknown contract")
	ErrContractExists    = errors.New("contract already registered")
	ErrUnsupported       = errors.New("entry point not supported by contract")
	ErrMaxCallDepth      = errors.New("maximum call depth exceeded")
	ErrInvalidMessage    = errors.New("invalid message")
)

// ContractError is returned when a contract entry point fails. It records
// which contract and entry point produced the error so a failed
// transaction can be traced back to the call that caused it.
type ContractError struct {
	Contract   string
	EntryPoint string
	Err        error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Contract, e.EntryPoint, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
