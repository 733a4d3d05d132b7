package chain

import (
	"fmt"
)

var balances = NewMap[Uint128]("balances")

func balanceKey(address, denom string) string {
	return address + "/" + denom
}

// Bank keeps native balances in the transactional store, so transfers made
// inside a failed sub-message are rolled back with it.
type Bank struct{}

// Balance returns the amount of denom held by address.
func (Bank) Balance(s KVStore, address, denom string) (Uint128, error) {
	amount, _, err := balances.MayLoad(s, balanceKey(address, denom))
	return amount, err
}

// AllBalances returns every non-zero balance of address.
func (Bank) AllBalances(s KVStore, address string) (Coins, error) {
	var out Coins
	err := balances.Range(s, address+"/", func(k string, amount Uint128) bool {
		out = append(out, Coin{Denom: k[len(address)+1:], Amount: amount})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out.Normalize()
}

// Mint credits coins to address out of thin air. Used for genesis funding.
func (b Bank) Mint(s KVStore, address string, coins Coins) error {
	for _, c := range coins {
		if err := b.credit(s, address, c); err != nil {
			return err
		}
	}
	return nil
}

// Send moves coins from one account to another. Zero coins are skipped.
func (b Bank) Send(s KVStore, from, to string, coins Coins) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	for _, c := range coins {
		if c.IsZero() {
			continue
		}
		if err := b.debit(s, from, c); err != nil {
			return err
		}
		if err := b.credit(s, to, c); err != nil {
			return err
		}
	}
	return nil
}

func (b Bank) debit(s KVStore, address string, c Coin) error {
	have, err := b.Balance(s, address, c.Denom)
	if err != nil {
		return err
	}
	left, err := have.Sub(c.Amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficientFunds, address, have, c.Denom, c)
	}
	if left.IsZero() {
		return balances.Remove(s, balanceKey(address, c.Denom))
	}
	return balances.Save(s, balanceKey(address, c.Denom), left)
}

func (b Bank) credit(s KVStore, address string, c Coin) error {
	if c.IsZero() {
		return nil
	}
	have, err := b.Balance(s, address, c.Denom)
	if err != nil {
		return err
	}
	sum, err := have.Add(c.Amount)
	if err != nil {
		return err
	}
	return balances.Save(s, balanceKey(address, c.Denom), sum)
}
