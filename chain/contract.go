package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BlockInfo describes the block a transaction executes in.
type BlockInfo struct {
	Height  uint64
	Time    time.Time
	ChainID string
}

// TimeNanos returns the block time as nanoseconds since the Unix epoch.
func (b BlockInfo) TimeNanos() uint64 {
	return uint64(b.Time.UnixNano())
}

// ContractInfo identifies the contract being called.
type ContractInfo struct {
	Address string
}

// Env is the environment a contract entry point runs in.
type Env struct {
	Block    BlockInfo
	Contract ContractInfo
	TxID     string
}

// MessageInfo carries the immediate caller and the funds it attached. The
// funds have already been credited to the contract when the entry point
// runs.
type MessageInfo struct {
	Sender string
	Funds  Coins
}

// Deps gives a contract access to its own storage, read access to the rest
// of the chain, and a logger scoped to the call.
type Deps struct {
	Storage KVStore
	Querier Querier
	Logger  zerolog.Logger
}

// Querier answers read-only questions about chain state.
type Querier interface {
	QueryBalance(ctx context.Context, address, denom string) (Coin, error)
	// QueryWasmSmart JSON encodes msg, runs the contract's query entry point
	// and decodes the answer into out.
	QueryWasmSmart(ctx context.Context, contract string, msg, out any) error
}

// Contract is code the runtime can call. Messages arrive JSON encoded.
type Contract interface {
	Execute(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)
	Reply(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error)
	Query(ctx context.Context, deps Deps, env Env, msg []byte) ([]byte, error)
}

// Instantiator is implemented by contracts that take an instantiate message.
type Instantiator interface {
	Instantiate(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)
}

// Migrator is implemented by contracts that accept migrations.
type Migrator interface {
	Migrate(ctx context.Context, deps Deps, env Env, msg []byte) (*Response, error)
}

type (
	ExecuteFunc func(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)
	ReplyFunc   func(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error)
	QueryFunc   func(ctx context.Context, deps Deps, env Env, msg []byte) ([]byte, error)
)

// ContractFunc is an implementation of Contract that uses ordinary
// functions. A nil reply or query function rejects the call with
// ErrUnsupported.
type ContractFunc struct {
	execute ExecuteFunc
	reply   ReplyFunc
	query   QueryFunc
}

// NewContractFunc constructs a contract from its entry points.
func NewContractFunc(execute ExecuteFunc, reply ReplyFunc, query QueryFunc) *ContractFunc {
	return &ContractFunc{execute: execute, reply: reply, query: query}
}

func (c *ContractFunc) Execute(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error) {
	if c.execute == nil {
		return nil, fmt.Errorf("execute: %w", ErrUnsupported)
	}
	return c.execute(ctx, deps, env, info, msg)
}

func (c *ContractFunc) Reply(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error) {
	if c.reply == nil {
		return nil, fmt.Errorf("reply: %w", ErrUnsupported)
	}
	return c.reply(ctx, deps, env, reply)
}

func (c *ContractFunc) Query(ctx context.Context, deps Deps, env Env, msg []byte) ([]byte, error) {
	if c.query == nil {
		return nil, fmt.Errorf("query: %w", ErrUnsupported)
	}
	return c.query(ctx, deps, env, msg)
}

// String implements the fmt.Stringer interface for ContractFunc.
func (c *ContractFunc) String() string {
	return fmt.Sprintf("ContractFunc[%p]", c)
}
