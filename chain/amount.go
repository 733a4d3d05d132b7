package chain

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
)

// Uint128 is an unsigned 128-bit token amount. All arithmetic is checked:
// results that do not fit return ErrOverflow instead of wrapping.
//
// It serializes as a decimal string, the way on-chain amounts travel in
// JSON messages.
type Uint128 struct {
	v uint256.Int
}

// NewUint128 returns the amount u.
func NewUint128(u uint64) Uint128 {
	var a Uint128
	a.v.SetUint64(u)
	return a
}

// ZeroUint128 returns the zero amount.
func ZeroUint128() Uint128 {
	return Uint128{}
}

// ParseUint128 parses a base-10 amount.
func ParseUint128(s string) (Uint128, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Uint128{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if v.Gt(maxUint128) {
		return Uint128{}, fmt.Errorf("%w: %s does not fit in 128 bits", ErrOverflow, s)
	}
	return Uint128{v: *v}, nil
}

// MustParseUint128 is like ParseUint128 but panics on error.
func MustParseUint128(s string) Uint128 {
	a, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Uint128FromBig converts a non-negative big integer.
func Uint128FromBig(b *big.Int) (Uint128, error) {
	if b.Sign() < 0 {
		return Uint128{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow || v.Gt(maxUint128) {
		return Uint128{}, fmt.Errorf("%w: %s does not fit in 128 bits", ErrOverflow, b)
	}
	return Uint128{v: *v}, nil
}

// BigInt returns a as a freshly allocated big integer.
func (a Uint128) BigInt() *big.Int {
	return a.v.ToBig()
}

func (a Uint128) IsZero() bool {
	return a.v.IsZero()
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Uint128) Cmp(b Uint128) int {
	return a.v.Cmp(&b.v)
}

func (a Uint128) LT(b Uint128) bool  { return a.Cmp(b) < 0 }
func (a Uint128) GT(b Uint128) bool  { return a.Cmp(b) > 0 }
func (a Uint128) GTE(b Uint128) bool { return a.Cmp(b) >= 0 }
func (a Uint128) Equal(b Uint128) bool {
	return a.Cmp(b) == 0
}

// Uint64 returns the low 64 bits of a and whether a fit in them.
func (a Uint128) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

func (a Uint128) String() string {
	return a.v.Dec()
}

// Add returns a+b.
func (a Uint128) Add(b Uint128) (Uint128, error) {
	var out Uint128
	out.v.Add(&a.v, &b.v)
	if out.v.Gt(maxUint128) {
		return Uint128{}, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return out, nil
}

// Sub returns a-b.
func (a Uint128) Sub(b Uint128) (Uint128, error) {
	if a.LT(b) {
		return Uint128{}, fmt.Errorf("%w: %s - %s", ErrOverflow, a, b)
	}
	var out Uint128
	out.v.Sub(&a.v, &b.v)
	return out, nil
}

// Mul returns a*b.
func (a Uint128) Mul(b Uint128) (Uint128, error) {
	var out Uint128
	// Both operands fit in 128 bits so the 256-bit product cannot wrap.
	out.v.Mul(&a.v, &b.v)
	if out.v.Gt(maxUint128) {
		return Uint128{}, fmt.Errorf("%w: %s * %s", ErrOverflow, a, b)
	}
	return out, nil
}

// MulRatio returns floor(a*num/den). The intermediate product is kept at
// 256 bits so only the final quotient has to fit.
func (a Uint128) MulRatio(num, den Uint128) (Uint128, error) {
	if den.IsZero() {
		return Uint128{}, fmt.Errorf("%w: %s * %s / 0", ErrDivideByZero, a, num)
	}
	var prod, out uint256.Int
	prod.Mul(&a.v, &num.v)
	out.Div(&prod, &den.v)
	if out.Gt(maxUint128) {
		return Uint128{}, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, a, num, den)
	}
	return Uint128{v: out}, nil
}

// MarshalText encodes a as a decimal string.
func (a Uint128) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a decimal string.
func (a *Uint128) UnmarshalText(text []byte) error {
	v, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
