package chain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var coinPattern = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]{1,127})$`)

// Coin is an amount of a single native denomination.
type Coin struct {
	Denom  string  `json:"denom" yaml:"denom"`
	Amount Uint128 `json:"amount" yaml:"amount"`
}

// NewCoin builds a coin from a 64-bit amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: NewUint128(amount)}
}

// ParseCoin parses the "<amount><denom>" shorthand, e.g. "100uatom".
func ParseCoin(s string) (Coin, error) {
	m := coinPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}
	amount, err := ParseUint128(m[1])
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: m[2], Amount: amount}, nil
}

// ParseCoins parses a comma separated list of coins. An empty string
// yields no coins.
func ParseCoins(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Coins
	for _, part := range strings.Split(s, ",") {
		c, err := ParseCoin(part)
		if err != nil {
			return nil, err
		}
		if out, err = out.Add(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

func (c Coin) IsZero() bool {
	return c.Amount.IsZero()
}

// Coins is a set of coins with at most one entry per denomination, kept
// sorted by denom.
type Coins []Coin

// AmountOf returns the amount held of denom, zero when absent.
func (cs Coins) AmountOf(denom string) Uint128 {
	for _, c := range cs {
		if c.Denom == denom {
			return c.Amount
		}
	}
	return ZeroUint128()
}

// Add returns a new set with c merged in. Zero coins are dropped.
func (cs Coins) Add(c Coin) (Coins, error) {
	out := make(Coins, 0, len(cs)+1)
	merged := false
	for _, existing := range cs {
		if existing.Denom == c.Denom {
			sum, err := existing.Amount.Add(c.Amount)
			if err != nil {
				return nil, err
			}
			existing.Amount = sum
			merged = true
		}
		if !existing.IsZero() {
			out = append(out, existing)
		}
	}
	if !merged && !c.IsZero() {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

// Normalize merges duplicate denominations and drops zero entries.
func (cs Coins) Normalize() (Coins, error) {
	var out Coins
	var err error
	for _, c := range cs {
		if out, err = out.Add(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
