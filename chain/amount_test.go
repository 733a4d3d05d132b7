package chain

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxUint128Dec = "340282366920938463463374607431768211455"

func TestUint128CheckedArithmetic(t *testing.T) {
	max := MustParseUint128(maxUint128Dec)

	_, err := max.Add(NewUint128(1))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = NewUint128(1).Sub(NewUint128(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = max.Mul(NewUint128(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = NewUint128(1).MulRatio(NewUint128(1), ZeroUint128())
	require.ErrorIs(t, err, ErrDivideByZero)

	sum, err := NewUint128(40).Add(NewUint128(2))
	require.NoError(t, err)
	assert.Equal(t, "42", sum.String())
}

func TestUint128MulRatioKeepsWideIntermediate(t *testing.T) {
	max := MustParseUint128(maxUint128Dec)

	// max*9999 overflows 128 bits, the quotient does not.
	got, err := max.MulRatio(NewUint128(9_999), NewUint128(10_000))
	require.NoError(t, err)

	want := new(big.Int).Mul(max.BigInt(), big.NewInt(9_999))
	want.Div(want, big.NewInt(10_000))
	assert.Equal(t, want.String(), got.String())

	fee, err := NewUint128(1_000_000).MulRatio(NewUint128(500), NewUint128(10_000))
	require.NoError(t, err)
	assert.Equal(t, "50000", fee.String())
}

func TestParseUint128Rejects(t *testing.T) {
	for _, in := range []string{"", "-1", "1.5", "abc", "340282366920938463463374607431768211456"} {
		_, err := ParseUint128(in)
		assert.Error(t, err, in)
	}
}

func TestUint128JSONIsDecimalString(t *testing.T) {
	data, err := json.Marshal(Coin{Denom: "uatom", Amount: NewUint128(100)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"denom":"uatom","amount":"100"}`, string(data))

	var c Coin
	require.NoError(t, json.Unmarshal([]byte(`{"denom":"uosmo","amount":"`+maxUint128Dec+`"}`), &c))
	assert.Equal(t, maxUint128Dec, c.Amount.String())

	require.Error(t, json.Unmarshal([]byte(`{"denom":"uosmo","amount":"-3"}`), &c))
}

func TestUint128FromBig(t *testing.T) {
	_, err := Uint128FromBig(big.NewInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = Uint128FromBig(tooBig)
	require.ErrorIs(t, err, ErrOverflow)

	v, err := Uint128FromBig(big.NewInt(12345))
	require.NoError(t, err)
	n, ok := v.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(12345), n)
}

func TestParseCoins(t *testing.T) {
	coins, err := ParseCoins("100uatom, 5ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2,20uatom")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "120", coins.AmountOf("uatom").String())
	assert.Equal(t, "5", coins.AmountOf("ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2").String())
	assert.True(t, coins.AmountOf("uosmo").IsZero())

	_, err = ParseCoin("uatom")
	require.ErrorIs(t, err, ErrInvalidCoin)
}
