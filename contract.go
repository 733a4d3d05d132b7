package entrypoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fortressi/entrypoint/chain"
)

// Reply ids of the entry point's sub-messages.
const (
	// SwapReplyID follows the UserSwap self-call.
	SwapReplyID uint64 = 1
	// SwapOutputReplyID follows the adapter swap inside UserSwap.
	SwapOutputReplyID uint64 = 2
	// ActionReplyID follows the PostSwapAction self-call.
	ActionReplyID uint64 = 3
)

// EntryPoint is the swap-and-action contract. It keeps no state of its own;
// everything lives in the storage handed to each entry point.
type EntryPoint struct{}

func New() *EntryPoint {
	return &EntryPoint{}
}

var (
	_ chain.Contract     = (*EntryPoint)(nil)
	_ chain.Instantiator = (*EntryPoint)(nil)
	_ chain.Migrator     = (*EntryPoint)(nil)
)

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validationFailedf(ErrInvalidMessage, "%v", err)
	}
	return nil
}

// Instantiate stores the venue table and the IBC transfer adapter, and
// blocks the contract itself, every adapter and any extra addresses as
// contract_call targets.
func (e *EntryPoint) Instantiate(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg InstantiateMsg
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}

	blocked := NewBlockedSet(deps.Storage)
	if err := blocked.Block(env.Contract.Address); err != nil {
		return nil, err
	}
	for _, addr := range msg.BlockedAddresses {
		if err := blocked.Block(addr); err != nil {
			return nil, err
		}
	}

	resp := chain.NewResponse().AddAttribute("action", "instantiate")

	if err := NewVenueRegistry(deps.Storage).RegisterAll(msg.SwapVenues); err != nil {
		return nil, err
	}
	for _, v := range msg.SwapVenues {
		resp.AddAttribute("add_swap_venue", v.Name+"="+v.AdapterContractAddress)
	}

	if msg.IbcTransferContractAddress == "" {
		return nil, validationFailedf(ErrInvalidAddress, "ibc_transfer_contract_address is empty")
	}
	if err := ibcTransferAdapter.Save(deps.Storage, msg.IbcTransferContractAddress); err != nil {
		return nil, err
	}
	if err := blocked.Block(msg.IbcTransferContractAddress); err != nil {
		return nil, err
	}

	if err := contractVersionItem.Save(deps.Storage, ContractVersionInfo{Contract: ContractName, Version: ContractVersion}); err != nil {
		return nil, err
	}

	deps.Logger.Info().
		Int("swap_venues", len(msg.SwapVenues)).
		Str("ibc_transfer_adapter", msg.IbcTransferContractAddress).
		Msg("entry point instantiated")

	return resp.
		AddAttribute("ibc_transfer_contract_address", msg.IbcTransferContractAddress).
		AddAttribute("contract_version", ContractVersion), nil
}

// Migrate updates the recorded version. It is refused while a swap or
// action is in flight.
func (e *EntryPoint) Migrate(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) (*chain.Response, error) {
	var msg MigrateMsg
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}
	phase, err := NewContinuationStore(deps.Storage).Phase()
	if err != nil {
		return nil, err
	}
	if phase != PhaseIdle {
		return nil, validationFailedf(ErrMigrationWithPendingContinuation, "phase is %s", phase)
	}
	if err := contractVersionItem.Save(deps.Storage, ContractVersionInfo{Contract: ContractName, Version: ContractVersion}); err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "migrate").
		AddAttribute("contract_version", ContractVersion), nil
}

func (e *EntryPoint) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg ExecuteMsg
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}

	commands := 0
	for _, present := range []bool{msg.SwapAndAction != nil, msg.Action != nil, msg.UserSwap != nil, msg.PostSwapAction != nil, msg.Receive != nil} {
		if present {
			commands++
		}
	}
	if commands != 1 {
		return nil, validationFailedf(ErrInvalidMessage, "execute message must carry exactly one command, got %d", commands)
	}

	switch {
	case msg.SwapAndAction != nil:
		return e.swapAndAction(ctx, deps, env, info, nil, *msg.SwapAndAction)
	case msg.Action != nil:
		return e.action(ctx, deps, env, info, nil, *msg.Action)
	case msg.UserSwap != nil:
		return e.userSwap(ctx, deps, env, info, *msg.UserSwap)
	case msg.Receive != nil:
		return e.receive(ctx, deps, env, info, *msg.Receive)
	default:
		return e.postSwapAction(ctx, deps, env, info, *msg.PostSwapAction)
	}
}

func (e *EntryPoint) Reply(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	switch reply.ID {
	case SwapReplyID:
		return e.onUserSwapResult(ctx, deps, env, reply)
	case SwapOutputReplyID:
		return e.onSwapOutput(ctx, deps, env, reply)
	case ActionReplyID:
		return e.onActionResult(ctx, deps, env, reply)
	default:
		return nil, inconsistent(fmt.Errorf("%w: %d", ErrUnknownReplyID, reply.ID))
	}
}

func (e *EntryPoint) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}

	switch {
	case msg.SwapVenueAdapterContract != nil:
		addr, err := NewVenueRegistry(deps.Storage).Resolve(msg.SwapVenueAdapterContract.Name)
		if err != nil {
			return nil, err
		}
		return json.Marshal(addr)
	case msg.IbcTransferAdapterContract != nil:
		addr, err := loadIbcTransferAdapter(deps.Storage)
		if err != nil {
			return nil, err
		}
		return json.Marshal(addr)
	case msg.SwapVenues != nil:
		venues, err := NewVenueRegistry(deps.Storage).Venues()
		if err != nil {
			return nil, err
		}
		if venues == nil {
			venues = []SwapVenue{}
		}
		return json.Marshal(venues)
	case msg.Phase != nil:
		phase, err := NewContinuationStore(deps.Storage).Phase()
		if err != nil {
			return nil, err
		}
		return json.Marshal(PhaseResponse{Phase: phase})
	case msg.ContractVersion != nil:
		v, err := contractVersionItem.Load(deps.Storage)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	default:
		return nil, ErrUnsupportedQuery
	}
}
