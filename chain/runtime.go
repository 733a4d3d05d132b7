package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxCallDepth bounds nested contract calls within a transaction.
	DefaultMaxCallDepth = 16

	contractPrefix = "contract/"
)

// Runtime executes transactions against a set of contracts.
//
// Every transaction runs against a cached branch of the committed store and
// is committed only when the top-level call succeeds. Sub-messages get
// their own nested branch: a failed sub-message discards its branch before
// the dispatching contract's reply runs, so a reply observes state exactly
// as it was before the failed message. An error returned from a reply
// fails the dispatching call.
//
// Transactions are serialized; the runtime is safe for concurrent use.
type Runtime struct {
	mu        sync.Mutex
	db        KVStore
	contracts *Registry
	bank      Bank
	block     BlockInfo
	maxDepth  int
	logger    zerolog.Logger
	metrics   *Metrics
	lastCalls *CallTree
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithStore sets the committed store. Defaults to a MemDB.
func WithStore(db KVStore) Option {
	return func(r *Runtime) { r.db = db }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithBlockTime sets the time of the first block.
func WithBlockTime(t time.Time) Option {
	return func(r *Runtime) { r.block.Time = t }
}

func WithMaxCallDepth(n int) Option {
	return func(r *Runtime) { r.maxDepth = n }
}

// NewRuntime creates a runtime for chainID.
func NewRuntime(chainID string, opts ...Option) *Runtime {
	r := &Runtime{
		db:        NewMemDB(),
		contracts: NewRegistry(),
		block: BlockInfo{
			Height:  1,
			Time:    time.Unix(1_700_000_000, 0).UTC(),
			ChainID: chainID,
		},
		maxDepth: DefaultMaxCallDepth,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TxResult is the outcome of a transaction.
type TxResult struct {
	TxID   string
	Events []Event
	Data   []byte
	Calls  *CallTree
}

// Attribute returns the last value emitted for key by any event.
func (r *TxResult) Attribute(key string) (string, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if v, ok := r.Events[i].Value(key); ok {
			return v, true
		}
	}
	return "", false
}

// Attributes returns every value emitted for key, in emission order.
func (r *TxResult) Attributes(key string) []string {
	var out []string
	for _, ev := range r.Events {
		for _, a := range ev.Attributes {
			if a.Key == key {
				out = append(out, a.Value)
			}
		}
	}
	return out
}

// Deploy registers code at address without instantiating it.
func (r *Runtime) Deploy(address string, c Contract) error {
	return r.contracts.Register(address, c)
}

// Contracts returns the code registry.
func (r *Runtime) Contracts() *Registry {
	return r.contracts
}

// Instantiate deploys c at address and runs its instantiate entry point,
// when it has one. The deployment is undone if instantiation fails.
func (r *Runtime) Instantiate(ctx context.Context, sender, address string, c Contract, msg any, funds ...Coin) (*TxResult, error) {
	if err := r.contracts.Register(address, c); err != nil {
		return nil, err
	}
	res, err := r.InstantiateCode(ctx, sender, address, msg, funds...)
	if err != nil {
		r.contracts.remove(address)
	}
	return res, err
}

// InstantiateCode runs the instantiate entry point of code already
// deployed at address.
func (r *Runtime) InstantiateCode(ctx context.Context, sender, address string, msg any, funds ...Coin) (*TxResult, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode instantiate message: %w", err)
	}
	return r.run(ctx, CallInstantiate, func(t *tx, store KVStore) ([]byte, error) {
		rec := CallRecord{Kind: CallInstantiate, Sender: sender, Target: address}
		data, _, err := t.call(ctx, store, -1, rec, funds, func(c Contract, deps Deps, env Env) (*Response, error) {
			inst, ok := c.(Instantiator)
			if !ok {
				return NewResponse(), nil
			}
			return inst.Instantiate(ctx, deps, env, MessageInfo{Sender: sender, Funds: funds}, raw)
		})
		return data, err
	})
}

// Execute runs a top-level call of contract by sender.
func (r *Runtime) Execute(ctx context.Context, sender, contract string, msg any, funds ...Coin) (*TxResult, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode execute message: %w", err)
	}
	return r.run(ctx, CallExecute, func(t *tx, store KVStore) ([]byte, error) {
		rec := CallRecord{Kind: CallExecute, Sender: sender, Target: contract}
		data, _, err := t.call(ctx, store, -1, rec, funds, func(c Contract, deps Deps, env Env) (*Response, error) {
			return c.Execute(ctx, deps, env, MessageInfo{Sender: sender, Funds: funds}, raw)
		})
		return data, err
	})
}

// Migrate runs the migrate entry point of contract.
func (r *Runtime) Migrate(ctx context.Context, sender, contract string, msg any) (*TxResult, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode migrate message: %w", err)
	}
	return r.run(ctx, CallMigrate, func(t *tx, store KVStore) ([]byte, error) {
		rec := CallRecord{Kind: CallMigrate, Sender: sender, Target: contract}
		data, _, err := t.call(ctx, store, -1, rec, nil, func(c Contract, deps Deps, env Env) (*Response, error) {
			m, ok := c.(Migrator)
			if !ok {
				return nil, fmt.Errorf("migrate: %w", ErrUnsupported)
			}
			return m.Migrate(ctx, deps, env, raw)
		})
		return data, err
	})
}

// Query runs a read-only query against committed state.
func (r *Runtime) Query(ctx context.Context, contract string, msg, out any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := &querier{rt: r, store: r.db}
	return q.QueryWasmSmart(ctx, contract, msg, out)
}

// Balance returns the committed balance of address in denom.
func (r *Runtime) Balance(address, denom string) (Uint128, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.Balance(r.db, address, denom)
}

// AllBalances returns every committed balance of address.
func (r *Runtime) AllBalances(address string) (Coins, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.AllBalances(r.db, address)
}

// Mint funds address directly in committed state.
func (r *Runtime) Mint(address string, coins ...Coin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.bank.Mint(r.db, address, coins); err != nil {
		return err
	}
	return r.flush()
}

// AdvanceBlock moves to the next block, d later.
func (r *Runtime) AdvanceBlock(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block.Height++
	r.block.Time = r.block.Time.Add(d)
}

// Block returns the current block.
func (r *Runtime) Block() BlockInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.block
}

// LastCalls returns the call tree of the most recent transaction.
func (r *Runtime) LastCalls() *CallTree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCalls
}

func (r *Runtime) flush() error {
	if f, ok := r.db.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (r *Runtime) run(ctx context.Context, kind CallKind, fn func(t *tx, store KVStore) ([]byte, error)) (*TxResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &tx{rt: r, id: uuid.NewString(), calls: newCallTree()}
	log := r.logger.With().Str("tx", t.id).Str("entry_point", string(kind)).Logger()
	start := time.Now()

	root := NewCacheKV(r.db)
	data, err := fn(t, root)
	r.lastCalls = t.calls
	r.metrics.observeTx(kind, err)

	res := &TxResult{TxID: t.id, Calls: t.calls}
	if err != nil {
		if len(t.calls.records) > 0 {
			t.calls.revert(0)
		}
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("transaction failed")
		return res, fmt.Errorf("tx %s: %w", t.id, err)
	}
	if err := root.Write(); err != nil {
		return res, err
	}
	if err := r.flush(); err != nil {
		return res, fmt.Errorf("flush committed state: %w", err)
	}

	res.Events = t.events
	res.Data = data
	log.Debug().Int("calls", len(t.calls.records)).Dur("elapsed", time.Since(start)).Msg("transaction committed")
	return res, nil
}

// tx is the state of one executing transaction.
type tx struct {
	rt     *Runtime
	id     string
	events []Event
	calls  *CallTree
}

type entryFunc func(c Contract, deps Deps, env Env) (*Response, error)

// call runs one contract entry point: funds move from the sender first,
// then the entry point runs, then its messages are dispatched.
func (t *tx) call(ctx context.Context, store KVStore, parent int, rec CallRecord, funds Coins, entry entryFunc) ([]byte, int, error) {
	idx := t.calls.begin(parent, rec)
	data, err := t.runCall(ctx, store, idx, rec, funds, entry)
	t.calls.finish(idx, err)
	return data, idx, err
}

func (t *tx) runCall(ctx context.Context, store KVStore, idx int, rec CallRecord, funds Coins, entry entryFunc) ([]byte, error) {
	if t.calls.records[idx].Depth >= t.rt.maxDepth {
		return nil, fmt.Errorf("%w: %d", ErrMaxCallDepth, t.rt.maxDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := t.rt.contracts.Get(rec.Target)
	if err != nil {
		return nil, err
	}
	if !funds.IsZero() {
		if err := t.transfer(store, rec.Sender, rec.Target, funds); err != nil {
			return nil, err
		}
	}

	resp, err := entry(c, t.deps(store, rec.Target), t.env(rec.Target))
	if err != nil {
		return nil, &ContractError{Contract: rec.Target, EntryPoint: string(rec.Kind), Err: err}
	}
	if resp == nil {
		resp = NewResponse()
	}
	return t.handleResponse(ctx, store, idx, rec.Target, resp)
}

// handleResponse records the response's events and dispatches its
// messages in order. Reply data, when set, replaces the call's own data.
func (t *tx) handleResponse(ctx context.Context, store KVStore, idx int, contract string, resp *Response) ([]byte, error) {
	t.emit(contract, resp)
	data := resp.Data

	for _, sub := range resp.Messages {
		branch := NewCacheKV(store)
		mark := len(t.events)

		subData, subIdx, err := t.dispatch(ctx, branch, idx, contract, sub)
		t.rt.metrics.observeSubMsg(sub.Msg.kind(), err)

		var result SubMsgResult
		if err == nil {
			if err := branch.Write(); err != nil {
				return nil, err
			}
			if !sub.ReplyOn.onSuccess() {
				continue
			}
			events := make([]Event, len(t.events)-mark)
			copy(events, t.events[mark:])
			result = SubMsgResult{Ok: &SubMsgResponse{Events: events, Data: subData}}
		} else {
			t.events = t.events[:mark]
			if subIdx >= 0 {
				t.calls.revert(subIdx)
			}
			if !sub.ReplyOn.onError() {
				return nil, err
			}
			result = SubMsgResult{Err: err.Error()}
		}

		replyData, err := t.reply(ctx, store, idx, contract, Reply{ID: sub.ID, Result: result})
		if err != nil {
			return nil, err
		}
		if replyData != nil {
			data = replyData
		}
	}
	return data, nil
}

func (t *tx) dispatch(ctx context.Context, store KVStore, parent int, sender string, sub SubMsg) ([]byte, int, error) {
	switch {
	case sub.Msg.Bank != nil:
		send := sub.Msg.Bank
		idx := t.calls.begin(parent, CallRecord{
			Kind: CallBank, Sender: sender, Target: send.ToAddress,
			ReplyID: sub.ID, ReplyOn: sub.ReplyOn,
		})
		err := t.transfer(store, sender, send.ToAddress, send.Amount)
		t.calls.finish(idx, err)
		return nil, idx, err

	case sub.Msg.Wasm != nil:
		exec := sub.Msg.Wasm
		rec := CallRecord{
			Kind: CallExecute, Sender: sender, Target: exec.ContractAddr,
			ReplyID: sub.ID, ReplyOn: sub.ReplyOn,
		}
		return t.call(ctx, store, parent, rec, exec.Funds, func(c Contract, deps Deps, env Env) (*Response, error) {
			return c.Execute(ctx, deps, env, MessageInfo{Sender: sender, Funds: exec.Funds}, exec.Msg)
		})

	default:
		return nil, -1, fmt.Errorf("%w: sub-message %d carries no message", ErrInvalidMessage, sub.ID)
	}
}

func (t *tx) reply(ctx context.Context, store KVStore, parent int, contract string, reply Reply) ([]byte, error) {
	t.rt.metrics.observeReply(reply.Result.IsOk())
	rec := CallRecord{Kind: CallReply, Target: contract, ReplyID: reply.ID}
	data, _, err := t.call(ctx, store, parent, rec, nil, func(c Contract, deps Deps, env Env) (*Response, error) {
		return c.Reply(ctx, deps, env, reply)
	})
	return data, err
}

func (t *tx) transfer(store KVStore, from, to string, coins Coins) error {
	if err := t.rt.bank.Send(store, from, to, coins); err != nil {
		return err
	}
	t.events = append(t.events, Event{Type: "transfer", Attributes: []Attribute{
		{Key: "recipient", Value: to},
		{Key: "sender", Value: from},
		{Key: "amount", Value: coins.String()},
	}})
	return nil
}

func (t *tx) emit(contract string, resp *Response) {
	if len(resp.Attributes) > 0 {
		attrs := append([]Attribute{{Key: "_contract_address", Value: contract}}, resp.Attributes...)
		t.events = append(t.events, Event{Type: "wasm", Attributes: attrs})
	}
	for _, ev := range resp.Events {
		attrs := append([]Attribute{{Key: "_contract_address", Value: contract}}, ev.Attributes...)
		t.events = append(t.events, Event{Type: "wasm-" + ev.Type, Attributes: attrs})
	}
}

func (t *tx) deps(store KVStore, contract string) Deps {
	return Deps{
		Storage: NewPrefixStore(store, contractPrefix+contract+"/"),
		Querier: &querier{rt: t.rt, store: store},
		Logger:  t.rt.logger.With().Str("tx", t.id).Str("contract", contract).Logger(),
	}
}

func (t *tx) env(contract string) Env {
	return Env{Block: t.rt.block, Contract: ContractInfo{Address: contract}, TxID: t.id}
}

// querier reads through the store of the call that issued the query, so a
// contract sees its own uncommitted writes and balances.
type querier struct {
	rt    *Runtime
	store KVStore
}

func (q *querier) QueryBalance(_ context.Context, address, denom string) (Coin, error) {
	amount, err := q.rt.bank.Balance(q.store, address, denom)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: denom, Amount: amount}, nil
}

func (q *querier) QueryWasmSmart(ctx context.Context, contract string, msg, out any) error {
	c, err := q.rt.contracts.Get(contract)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode query for %s: %w", contract, err)
	}
	// Queries run on a throwaway branch so they cannot write.
	scratch := NewCacheKV(q.store)
	deps := Deps{
		Storage: NewPrefixStore(scratch, contractPrefix+contract+"/"),
		Querier: &querier{rt: q.rt, store: scratch},
		Logger:  q.rt.logger.With().Str("contract", contract).Logger(),
	}
	env := Env{Block: q.rt.block, Contract: ContractInfo{Address: contract}}
	answer, err := c.Query(ctx, deps, env, raw)
	if err != nil {
		return &ContractError{Contract: contract, EntryPoint: "query", Err: err}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(answer, out); err != nil {
		return fmt.Errorf("decode query answer from %s: %w", contract, err)
	}
	return nil
}
