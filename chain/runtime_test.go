package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMsg drives stubContract: store a value, optionally fail, and
// optionally call another stub with a nested message.
type stubMsg struct {
	Set       string   `json:"set,omitempty"`
	Fail      bool     `json:"fail,omitempty"`
	Data      string   `json:"data,omitempty"`
	Call      string   `json:"call,omitempty"`
	Child     *stubMsg `json:"child,omitempty"`
	ReplyOn   ReplyOn  `json:"reply_on,omitempty"`
	FailReply bool     `json:"fail_reply,omitempty"`
	Send      Coins    `json:"send,omitempty"`
}

type stubState struct {
	Value     string `json:"value"`
	LastReply string `json:"last_reply"`
}

var stubItem = NewItem[stubState]("stub")

func stubContract() *ContractFunc {
	return NewContractFunc(
		func(ctx context.Context, deps Deps, env Env, info MessageInfo, raw []byte) (*Response, error) {
			var msg stubMsg
			if err := json.Unmarshal(raw, &msg); err != nil {
				return nil, err
			}
			state, _, err := stubItem.MayLoad(deps.Storage)
			if err != nil {
				return nil, err
			}
			if msg.Set != "" {
				state.Value = msg.Set
			}
			if err := stubItem.Save(deps.Storage, state); err != nil {
				return nil, err
			}
			if msg.FailReply {
				if err := deps.Storage.Set([]byte("fail_reply"), []byte("1")); err != nil {
					return nil, err
				}
			}
			if msg.Fail {
				return nil, errors.New("stub failed")
			}

			resp := NewResponse().AddAttribute("stub", msg.Set)
			if msg.Data != "" {
				resp.SetData([]byte(msg.Data))
			}
			if len(msg.Send) > 0 {
				resp.AddSubMessage(SubMsg{ID: 7, Msg: NewBankSend(info.Sender, msg.Send...), ReplyOn: msg.ReplyOn})
			}
			if msg.Call != "" {
				child, err := NewWasmExecute(msg.Call, msg.Child)
				if err != nil {
					return nil, err
				}
				resp.AddSubMessage(SubMsg{ID: 42, Msg: child, ReplyOn: msg.ReplyOn})
			}
			return resp, nil
		},
		func(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error) {
			state, err := stubItem.Load(deps.Storage)
			if err != nil {
				return nil, err
			}
			resp := NewResponse()
			if reply.Result.IsOk() {
				state.LastReply = "ok"
				if d := reply.Result.Ok.Data; d != nil {
					resp.SetData([]byte("reply:" + string(d)))
				}
			} else {
				state.LastReply = "err:" + reply.Result.Err
			}
			if err := stubItem.Save(deps.Storage, state); err != nil {
				return nil, err
			}
			if failing, _ := deps.Storage.Has([]byte("fail_reply")); failing {
				return nil, errors.New("reply rejected")
			}
			return resp.AddAttribute("reply_id", fmt.Sprint(reply.ID)), nil
		},
		func(ctx context.Context, deps Deps, env Env, msg []byte) ([]byte, error) {
			state, _, err := stubItem.MayLoad(deps.Storage)
			if err != nil {
				return nil, err
			}
			return json.Marshal(state)
		},
	)
}

func newStubRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt := NewRuntime("testchain", opts...)
	require.NoError(t, rt.Deploy("parent", stubContract()))
	require.NoError(t, rt.Deploy("child", stubContract()))
	return rt
}

func stubOf(t *testing.T, rt *Runtime, contract string) stubState {
	t.Helper()
	var state stubState
	require.NoError(t, rt.Query(context.Background(), contract, struct{}{}, &state))
	return state
}

func TestSubMessageSuccessCommitsBranch(t *testing.T) {
	rt := newStubRuntime(t)

	res, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Set: "p", Call: "child", Child: &stubMsg{Set: "c"}, ReplyOn: ReplyAlways,
	})
	require.NoError(t, err)

	assert.Equal(t, "p", stubOf(t, rt, "parent").Value)
	assert.Equal(t, "ok", stubOf(t, rt, "parent").LastReply)
	assert.Equal(t, "c", stubOf(t, rt, "child").Value)
	assert.Equal(t, []string{"p", "c"}, res.Attributes("stub"))
	assert.NotEmpty(t, res.TxID)
}

func TestSubMessageFailureDiscardsBranchBeforeReply(t *testing.T) {
	rt := newStubRuntime(t)

	res, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Set: "p", Call: "child", Child: &stubMsg{Set: "c", Fail: true}, ReplyOn: ReplyError,
	})
	require.NoError(t, err)

	parent := stubOf(t, rt, "parent")
	assert.Equal(t, "p", parent.Value)
	assert.True(t, strings.HasPrefix(parent.LastReply, "err:"), parent.LastReply)
	assert.Contains(t, parent.LastReply, "stub failed")
	assert.Empty(t, stubOf(t, rt, "child").Value, "failed child writes must be discarded")
	assert.Equal(t, []string{"p"}, res.Attributes("stub"))
}

func TestSubMessageFailureWithoutErrorReplyAbortsTransaction(t *testing.T) {
	rt := newStubRuntime(t)

	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Set: "p", Call: "child", Child: &stubMsg{Fail: true}, ReplyOn: ReplySuccess,
	})
	require.Error(t, err)

	var cerr *ContractError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "child", cerr.Contract)
	assert.Empty(t, stubOf(t, rt, "parent").Value)
}

func TestReplyErrorAbortsDispatchingCall(t *testing.T) {
	rt := newStubRuntime(t)

	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Set: "p", FailReply: true, Call: "child", Child: &stubMsg{Set: "c"}, ReplyOn: ReplySuccess,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply rejected")

	assert.Empty(t, stubOf(t, rt, "parent").Value)
	assert.Empty(t, stubOf(t, rt, "child").Value)
}

func TestReplyDataReplacesCallData(t *testing.T) {
	rt := newStubRuntime(t)

	res, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Data: "parent", Call: "child", Child: &stubMsg{Data: "child"}, ReplyOn: ReplySuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, "reply:child", string(res.Data))

	res, err = rt.Execute(context.Background(), "user", "parent", stubMsg{
		Data: "parent", Call: "child", Child: &stubMsg{Data: "child"}, ReplyOn: ReplyNever,
	})
	require.NoError(t, err)
	assert.Equal(t, "parent", string(res.Data))
}

func TestFundsMoveWithCallAndRollBackOnFailure(t *testing.T) {
	rt := newStubRuntime(t)
	require.NoError(t, rt.Mint("user", NewCoin("uatom", 100)))

	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{Set: "p"}, NewCoin("uatom", 40))
	require.NoError(t, err)

	bal, err := rt.Balance("parent", "uatom")
	require.NoError(t, err)
	assert.Equal(t, "40", bal.String())

	_, err = rt.Execute(context.Background(), "user", "parent", stubMsg{Fail: true}, NewCoin("uatom", 60))
	require.Error(t, err)

	bal, err = rt.Balance("user", "uatom")
	require.NoError(t, err)
	assert.Equal(t, "60", bal.String())

	_, err = rt.Execute(context.Background(), "user", "parent", stubMsg{}, NewCoin("uatom", 61))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBankSubMessageFailureReplies(t *testing.T) {
	rt := newStubRuntime(t)

	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Set: "p", Send: Coins{NewCoin("uosmo", 5)}, ReplyOn: ReplyAlways,
	})
	require.NoError(t, err)
	assert.Contains(t, stubOf(t, rt, "parent").LastReply, ErrInsufficientFunds.Error())

	calls := rt.LastCalls().Find(CallBank, "user")
	require.Len(t, calls, 1)
	assert.Equal(t, CallFailed, calls[0].Status)
}

func TestUnknownContract(t *testing.T) {
	rt := newStubRuntime(t)
	_, err := rt.Execute(context.Background(), "user", "nobody", stubMsg{})
	require.ErrorIs(t, err, ErrUnknownContract)
}

func TestMaxCallDepth(t *testing.T) {
	rt := newStubRuntime(t, WithMaxCallDepth(3))

	msg := &stubMsg{}
	for i := 0; i < 5; i++ {
		msg = &stubMsg{Call: "child", Child: msg}
	}
	_, err := rt.Execute(context.Background(), "user", "parent", msg)
	require.ErrorIs(t, err, ErrMaxCallDepth)
}

func TestCallTreeMarksRevertedCalls(t *testing.T) {
	rt := newStubRuntime(t)

	// parent -> child (succeeds) -> parent reply fails the whole transaction.
	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		FailReply: true, Call: "child", Child: &stubMsg{Set: "c"}, ReplyOn: ReplySuccess,
	})
	require.Error(t, err)

	records := rt.LastCalls().Records()
	require.Len(t, records, 3)
	assert.Equal(t, CallExecute, records[0].Kind)
	assert.Equal(t, CallFailed, records[0].Status)
	assert.Equal(t, "child", records[1].Target)
	assert.Equal(t, CallReverted, records[1].Status)
	assert.Equal(t, 1, records[1].Depth)
	assert.Equal(t, CallReply, records[2].Kind)
	assert.Equal(t, CallFailed, records[2].Status)

	dot, err := rt.LastCalls().DOT("tx")
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph tx")
	assert.Contains(t, dot, "red")
}

func TestRuntimeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rt := newStubRuntime(t, WithMetrics(m))

	_, err := rt.Execute(context.Background(), "user", "parent", stubMsg{
		Call: "child", Child: &stubMsg{Fail: true}, ReplyOn: ReplyAlways,
	})
	require.NoError(t, err)
	_, err = rt.Execute(context.Background(), "user", "parent", stubMsg{Fail: true})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.txs.WithLabelValues("execute", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txs.WithLabelValues("execute", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subcalls.WithLabelValues("wasm", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("error")))
}

func TestAdvanceBlock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rt := NewRuntime("testchain", WithBlockTime(start))
	rt.AdvanceBlock(6 * time.Second)

	b := rt.Block()
	assert.Equal(t, uint64(2), b.Height)
	assert.Equal(t, start.Add(6*time.Second), b.Time)
	assert.Equal(t, uint64(start.Add(6*time.Second).UnixNano()), b.TimeNanos())
}

func TestInstantiateFailureUndeploys(t *testing.T) {
	rt := NewRuntime("testchain")
	failing := struct {
		*ContractFunc
		Instantiator
	}{
		ContractFunc: stubContract(),
		Instantiator: instantiateFunc(func(context.Context, Deps, Env, MessageInfo, []byte) (*Response, error) {
			return nil, errors.New("bad config")
		}),
	}

	_, err := rt.Instantiate(context.Background(), "admin", "broken", failing, struct{}{})
	require.Error(t, err)
	assert.False(t, rt.Contracts().Has("broken"))
}

type instantiateFunc func(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)

func (f instantiateFunc) Instantiate(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error) {
	return f(ctx, deps, env, info, msg)
}

func TestInstantiateCodeKeepsDeployment(t *testing.T) {
	rt := NewRuntime("testchain")
	calls := 0
	code := struct {
		*ContractFunc
		Instantiator
	}{
		ContractFunc: stubContract(),
		Instantiator: instantiateFunc(func(context.Context, Deps, Env, MessageInfo, []byte) (*Response, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("not yet")
			}
			return NewResponse(), nil
		}),
	}
	require.NoError(t, rt.Deploy("code", code))

	_, err := rt.InstantiateCode(context.Background(), "admin", "code", struct{}{})
	require.Error(t, err)
	assert.True(t, rt.Contracts().Has("code"), "deployed code stays registered")

	_, err = rt.InstantiateCode(context.Background(), "admin", "code", struct{}{})
	require.NoError(t, err)

	_, err = rt.InstantiateCode(context.Background(), "admin", "missing", struct{}{})
	require.ErrorIs(t, err, ErrUnknownContract)
}
