package entrypoint

import (
	"errors"
	"fmt"

	"github.com/fortressi/entrypoint/chain"
	"github.com/fortressi/entrypoint/set"
)

const (
	ContractName    = "entry-point"
	ContractVersion = "0.3.0"
)

var (
	swapVenues          = chain.NewMap[string]("swap_venue_map")
	blockedAddresses    = chain.NewMap[bool]("blocked_contract_addresses")
	ibcTransferAdapter  = chain.NewItem[string]("ibc_transfer_contract_address")
	contractVersionItem = chain.NewItem[ContractVersionInfo]("contract_info")
)

// ContractVersionInfo records which code last instantiated or migrated the
// contract.
type ContractVersionInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// VenueRegistry maps swap venue names to adapter contracts.
type VenueRegistry struct {
	store   chain.KVStore
	blocked *BlockedSet
}

func NewVenueRegistry(s chain.KVStore) *VenueRegistry {
	return &VenueRegistry{store: s, blocked: NewBlockedSet(s)}
}

// Register binds name to adapter, replacing any previous binding. The
// adapter becomes a blocked contract-call target.
func (r *VenueRegistry) Register(name, adapter string) error {
	if name == "" || adapter == "" {
		return validationFailedf(ErrInvalidAddress, "swap venue %q with adapter %q", name, adapter)
	}
	if err := swapVenues.Save(r.store, name, adapter); err != nil {
		return err
	}
	return r.blocked.Block(adapter)
}

// RegisterAll registers venues, rejecting duplicate names.
func (r *VenueRegistry) RegisterAll(venues []SwapVenue) error {
	seen := set.New[string]()
	for _, v := range venues {
		if !seen.Insert(v.Name) {
			return validationFailedf(ErrDuplicateSwapVenueName, "%s", v.Name)
		}
		if err := r.Register(v.Name, v.AdapterContractAddress); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the adapter registered for name.
func (r *VenueRegistry) Resolve(name string) (string, error) {
	adapter, err := swapVenues.Load(r.store, name)
	if errors.Is(err, chain.ErrNotFound) {
		return "", validationFailedf(ErrSwapVenueNotFound, "%q", name)
	}
	return adapter, err
}

// Venues lists every registered venue ordered by name.
func (r *VenueRegistry) Venues() ([]SwapVenue, error) {
	var out []SwapVenue
	err := swapVenues.Range(r.store, "", func(name, adapter string) bool {
		out = append(out, SwapVenue{Name: name, AdapterContractAddress: adapter})
		return true
	})
	return out, err
}

// BlockedSet holds addresses a contract_call action may not target.
type BlockedSet struct {
	store chain.KVStore
}

func NewBlockedSet(s chain.KVStore) *BlockedSet {
	return &BlockedSet{store: s}
}

func (b *BlockedSet) Block(address string) error {
	if address == "" {
		return validationFailedf(ErrInvalidAddress, "cannot block an empty address")
	}
	return blockedAddresses.Save(b.store, address, true)
}

func (b *BlockedSet) IsBlocked(address string) (bool, error) {
	return blockedAddresses.Has(b.store, address)
}

func loadIbcTransferAdapter(s chain.KVStore) (string, error) {
	addr, err := ibcTransferAdapter.Load(s)
	if err != nil {
		return "", fmt.Errorf("ibc transfer adapter: %w", err)
	}
	return addr, nil
}
