package chain

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps contract addresses to the code deployed there.
//
// Code lives outside the transactional store: deploying is an operator
// action, not something a transaction can roll back.
type Registry struct {
	contracts *xsync.MapOf[string, Contract]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts: xsync.NewMapOf[string, Contract](),
	}
}

// Register deploys c at address.
func (r *Registry) Register(address string, c Contract) error {
	if address == "" {
		return fmt.Errorf("%w: empty contract address", ErrInvalidMessage)
	}
	if _, loaded := r.contracts.LoadOrStore(address, c); loaded {
		return fmt.Errorf("%w: %s", ErrContractExists, address)
	}
	return nil
}

// Get returns the contract deployed at address.
func (r *Registry) Get(address string) (Contract, error) {
	c, ok := r.contracts.Load(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, address)
	}
	return c, nil
}

func (r *Registry) Has(address string) bool {
	_, ok := r.contracts.Load(address)
	return ok
}

// Addresses lists every deployed contract in sorted order.
func (r *Registry) Addresses() []string {
	var out []string
	r.contracts.Range(func(address string, _ Contract) bool {
		out = append(out, address)
		return true
	})
	sort.Strings(out)
	return out
}

func (r *Registry) remove(address string) {
	r.contracts.Delete(address)
}
