package entrypoint

import (
	"github.com/fortressi/entrypoint/chain"
)

const basisPointsScale = 10_000

// Affiliate receives a share of the swap output.
type Affiliate struct {
	Address        string        `json:"address" yaml:"address"`
	BasisPointsFee chain.Uint128 `json:"basis_points_fee" yaml:"basis_points_fee"`
}

// AffiliateFee is the amount owed to one affiliate.
type AffiliateFee struct {
	Address string
	Amount  chain.Uint128
}

// ComputeAffiliateFees applies each affiliate's rate, in order, to what is
// left after the previous affiliates were paid:
//
//	fee_i = floor(remaining_i * bps_i / 10000)
//	remaining_{i+1} = remaining_i - fee_i
//
// The order of affiliates therefore changes the amounts and is preserved
// exactly as given. It returns the fees and the final remainder.
func ComputeAffiliateFees(amount chain.Uint128, affiliates []Affiliate) ([]AffiliateFee, chain.Uint128, error) {
	scale := chain.NewUint128(basisPointsScale)
	remaining := amount
	fees := make([]AffiliateFee, 0, len(affiliates))

	for _, a := range affiliates {
		if a.BasisPointsFee.GTE(scale) {
			return nil, chain.Uint128{}, validationFailedf(ErrInvalidBasisPoints, "%s has %s", a.Address, a.BasisPointsFee)
		}
		fee, err := remaining.MulRatio(a.BasisPointsFee, scale)
		if err != nil {
			return nil, chain.Uint128{}, err
		}
		if remaining, err = remaining.Sub(fee); err != nil {
			return nil, chain.Uint128{}, err
		}
		fees = append(fees, AffiliateFee{Address: a.Address, Amount: fee})
	}
	return fees, remaining, nil
}

// validateAffiliates checks affiliate addresses and rates against the
// minimum asset amount. Every rate is below 10000 bps and each fee comes out
// of what is left, so the fees never sum past the amount.
func validateAffiliates(minAmount chain.Uint128, affiliates []Affiliate) error {
	for _, a := range affiliates {
		if a.Address == "" {
			return validationFailedf(ErrInvalidAddress, "affiliate address is empty")
		}
	}
	_, _, err := ComputeAffiliateFees(minAmount, affiliates)
	return err
}
