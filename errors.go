package entrypoint

import (
	"errors"
	"fmt"
)

// Request validation failures. All of them are raised before any asset
// leaves the contract, so the whole request is rejected.
var (
	ErrTimeout                        = errors.New("timeout timestamp must be later than the current block time")
	ErrInvalidFunds                   = errors.New("exactly one coin must be attached, or none with a cw20 hook")
	ErrZeroAmount                     = errors.New("amount must be greater than zero")
	ErrSentAssetMismatch              = errors.New("sent asset does not match the attached funds")
	ErrNonNativeAsset                 = errors.New("only native assets are accepted")
	ErrInvalidAsset                   = errors.New("asset must be exactly one of native or cw20")
	ErrInvalidSwap                    = errors.New("swap must be exactly one of swap_exact_asset_in or swap_exact_asset_out")
	ErrInvalidAction                  = errors.New("action must be exactly one of bank_send, ibc_transfer or contract_call")
	ErrSwapOperationsEmpty            = errors.New("swap operations cannot be empty")
	ErrSwapOperationsAssetInMismatch  = errors.New("first swap operation denom in does not match the swap input")
	ErrSwapOperationsAssetOutMismatch = errors.New("last swap operation denom out does not match the minimum asset")
	ErrSwapOperationsNotChained       = errors.New("swap operations are not chained")
	ErrSwapVenueNotFound              = errors.New("swap venue not found")
	ErrDuplicateSwapVenueName         = errors.New("duplicate swap venue name")
	ErrInvalidBasisPoints             = errors.New("affiliate basis points fee must be less than 10000")
	ErrContractCallAddressBlocked     = errors.New("contract call address is blocked")
	ErrNoRefundAddress                = errors.New("a refund address is required for swap_exact_asset_out")
	ErrRemainingLessThanSwapIn        = errors.New("remaining asset is less than the swap input required")
	ErrInsufficientForIbcFee          = errors.New("sent asset does not cover the ibc fee")
	ErrIbcFeesNotOneCoin              = errors.New("ibc fees must be a single coin")
	ErrIbcFeeDenomMismatch            = errors.New("ibc fee denom does not match the sent asset")
	ErrFeeSwapWithoutIbcFees          = errors.New("fee swap provided but the ibc transfer carries no fees")
	ErrFeeSwapNotAllowed              = errors.New("fee swap is only allowed together with a user swap")
	ErrNoMinAssetProvided             = errors.New("exact_out actions require a minimum asset")
	ErrActionDenomMismatch            = errors.New("minimum asset denom does not match the sent asset")
	ErrRemainingAssetLessThanMinAsset = errors.New("remaining asset is less than the minimum asset")
	ErrInvalidAddress                 = errors.New("invalid address")
	ErrInvalidMessage                 = errors.New("invalid message")
)

// Swap outcome failures. These are raised inside the swap sub-call and
// surface to the caller as a refund.
var (
	ErrReceivedLessThanMinimum = errors.New("received less asset from swap than the minimum asset required")
	ErrAdapterOutputMissing    = errors.New("swap adapter returned no output asset")
	ErrAdapterOutputMismatch   = errors.New("swap adapter output does not match the contract balance")
)

var (
	ErrUnauthorized                     = errors.New("unauthorized")
	ErrOperationInFlight                = errors.New("another swap and action is already in flight")
	ErrNoContinuation                   = errors.New("no continuation recorded")
	ErrIllegalPhaseTransition           = errors.New("illegal phase transition")
	ErrUnknownReplyID                   = errors.New("unknown reply id")
	ErrMigrationWithPendingContinuation = errors.New("cannot migrate while a continuation is pending")
	ErrUnsupportedQuery                 = errors.New("unsupported query")
)

// ValidationError is returned when a request is rejected before any state
// changes.
type ValidationError struct {
	error
}

func validationFailed(err error) error {
	return &ValidationError{fmt.Errorf("validation failed: %w", err)}
}

// validationFailedf wraps sentinel with additional context.
func validationFailedf(sentinel error, format string, args ...any) error {
	return &ValidationError{fmt.Errorf("validation failed: %w: %s", sentinel, fmt.Sprintf(format, args...))}
}

func (e *ValidationError) Unwrap() error { return e.error }

// AuthorizationError is returned when a caller invokes an entry point it
// may not use.
type AuthorizationError struct {
	error
}

func unauthorized(sender, command string) error {
	return &AuthorizationError{fmt.Errorf("%w: %s may not call %s", ErrUnauthorized, sender, command)}
}

func (e *AuthorizationError) Unwrap() error { return e.error }

// ConsistencyError signals that stored state does not match what the
// current step expects. It always aborts the enclosing call.
type ConsistencyError struct {
	error
}

func inconsistent(err error) error {
	return &ConsistencyError{fmt.Errorf("consistency violated: %w", err)}
}

func (e *ConsistencyError) Unwrap() error { return e.error }
