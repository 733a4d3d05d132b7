package entrypoint

import (
	"fmt"

	"github.com/fortressi/entrypoint/chain"
)

// SwapContinuation is everything the swap reply needs to carry on once the
// swap sub-call has finished.
type SwapContinuation struct {
	RecoveryAddr     string      `json:"recovery_addr"`
	Funds            []Asset     `json:"funds"`
	Swap             Swap        `json:"swap"`
	MinAsset         Asset       `json:"min_asset"`
	TimeoutTimestamp uint64      `json:"timeout_timestamp"`
	PostSwapAction   Action      `json:"post_swap_action"`
	Affiliates       []Affiliate `json:"affiliates"`
}

// ActionContinuation is what the action reply needs to refund a failed
// action.
type ActionContinuation struct {
	RecoveryAddr string  `json:"recovery_addr"`
	Funds        []Asset `json:"funds"`
	Action       Action  `json:"action"`
}

var (
	swapContinuation   = chain.NewItem[SwapContinuation]("swap_continuation")
	actionContinuation = chain.NewItem[ActionContinuation]("action_continuation")
	phaseItem          = chain.NewItem[Phase]("phase")
)

// ContinuationStore holds the two continuation slots and the phase they
// imply. Taking a continuation removes it, so a reply can only ever
// consume the record written for it once.
type ContinuationStore struct {
	store chain.KVStore
}

func NewContinuationStore(s chain.KVStore) *ContinuationStore {
	return &ContinuationStore{store: s}
}

// Phase returns the persisted phase, PhaseIdle when none was recorded.
func (c *ContinuationStore) Phase() (Phase, error) {
	p, _, err := phaseItem.MayLoad(c.store)
	return p, err
}

// RequireIdle fails with ErrOperationInFlight unless no continuation is
// pending.
func (c *ContinuationStore) RequireIdle() error {
	p, err := c.Phase()
	if err != nil {
		return err
	}
	if p != PhaseIdle {
		return validationFailedf(ErrOperationInFlight, "phase is %s", p)
	}
	return nil
}

func (c *ContinuationStore) advance(event PhaseEvent) error {
	p, err := c.Phase()
	if err != nil {
		return err
	}
	next, err := p.next(event)
	if err != nil {
		return err
	}
	if next == PhaseIdle {
		return phaseItem.Remove(c.store)
	}
	return phaseItem.Save(c.store, next)
}

// PutSwap records rec in the swap slot.
func (c *ContinuationStore) PutSwap(rec SwapContinuation) error {
	if err := c.advance(EventSwapDispatched); err != nil {
		return err
	}
	return swapContinuation.Save(c.store, rec)
}

// PeekSwap reads the swap slot without consuming it.
func (c *ContinuationStore) PeekSwap() (SwapContinuation, error) {
	rec, ok, err := swapContinuation.MayLoad(c.store)
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, inconsistent(fmt.Errorf("%w: swap", ErrNoContinuation))
	}
	return rec, nil
}

// TakeSwap reads and clears the swap slot.
func (c *ContinuationStore) TakeSwap() (SwapContinuation, error) {
	rec, err := c.PeekSwap()
	if err != nil {
		return rec, err
	}
	if err := swapContinuation.Remove(c.store); err != nil {
		return rec, err
	}
	return rec, c.advance(EventSwapResolved)
}

// PutAction records rec in the action slot.
func (c *ContinuationStore) PutAction(rec ActionContinuation) error {
	if err := c.advance(EventActionDispatched); err != nil {
		return err
	}
	return actionContinuation.Save(c.store, rec)
}

// TakeAction reads and clears the action slot.
func (c *ContinuationStore) TakeAction() (ActionContinuation, error) {
	rec, ok, err := actionContinuation.MayLoad(c.store)
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, inconsistent(fmt.Errorf("%w: action", ErrNoContinuation))
	}
	if err := actionContinuation.Remove(c.store); err != nil {
		return rec, err
	}
	return rec, c.advance(EventActionResolved)
}
