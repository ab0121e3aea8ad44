package waterfallv1

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LayerKind names a waterfall layer.
type LayerKind string

const (
	KindDefaulterMargin       LayerKind = "defaulter_margin"
	KindDefaulterContribution LayerKind = "defaulter_contribution"
	KindSkinInTheGame         LayerKind = "skin_in_the_game"
	KindMutualizedFund        LayerKind = "mutualized_fund"
	KindCapitalReserve        LayerKind = "capital_reserve"
)

// Layer is one financial resource consumed to cover a default loss.
type Layer interface {
	Kind() LayerKind
	Available() decimal.Decimal
	// Apply returns the amount of loss this layer absorbs, never more than
	// Available and never more than loss.
	Apply(loss decimal.Decimal) decimal.Decimal
}

type capped struct {
	available decimal.Decimal
}

func (c capped) Available() decimal.Decimal {
	if c.available.IsNegative() {
		return decimal.Zero
	}
	return c.available
}

func (c capped) Apply(loss decimal.Decimal) decimal.Decimal {
	if !loss.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(loss, c.Available())
}

// DefaulterMargin is the defaulting member's seized margin collateral.
type DefaulterMargin struct{ capped }

// NewDefaulterMargin creates layer 1.
func NewDefaulterMargin(amount decimal.Decimal) DefaulterMargin {
	return DefaulterMargin{capped{amount}}
}

// Kind implements Layer.
func (DefaulterMargin) Kind() LayerKind { return KindDefaulterMargin }

// DefaulterContribution is the defaulting member's guarantee fund contribution.
type DefaulterContribution struct{ capped }

// NewDefaulterContribution creates layer 2.
func NewDefaulterContribution(amount decimal.Decimal) DefaulterContribution {
	return DefaulterContribution{capped{amount}}
}

// Kind implements Layer.
func (DefaulterContribution) Kind() LayerKind { return KindDefaulterContribution }

// SkinInTheGame is the CCP's own first-loss capital.
type SkinInTheGame struct{ capped }

// NewSkinInTheGame creates layer 3.
func NewSkinInTheGame(amount decimal.Decimal) SkinInTheGame {
	return SkinInTheGame{capped{amount}}
}

// Kind implements Layer.
func (SkinInTheGame) Kind() LayerKind { return KindSkinInTheGame }

// MutualizedFund is the pool of non-defaulting members' contributions.
type MutualizedFund struct {
	capped
	contributions map[string]decimal.Decimal
}

// NewMutualizedFund creates layer 4 from the surviving members' contributions.
func NewMutualizedFund(contributions map[string]decimal.Decimal) MutualizedFund {
	total := decimal.Zero
	copied := make(map[string]decimal.Decimal, len(contributions))
	for member, amount := range contributions {
		if amount.IsPositive() {
			copied[member] = amount
			total = total.Add(amount)
		}
	}
	return MutualizedFund{capped: capped{total}, contributions: copied}
}

// Kind implements Layer.
func (MutualizedFund) Kind() LayerKind { return KindMutualizedFund }

// Charges splits utilized across contributors pro rata to their contributions.
// Rounding residue goes to the largest contributor so the charges sum to utilized.
func (m MutualizedFund) Charges(utilized decimal.Decimal) map[string]decimal.Decimal {
	charges := make(map[string]decimal.Decimal, len(m.contributions))
	if !utilized.IsPositive() || !m.available.IsPositive() {
		return charges
	}

	members := make([]string, 0, len(m.contributions))
	for member := range m.contributions {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		ci, cj := m.contributions[members[i]], m.contributions[members[j]]
		if ci.Equal(cj) {
			return members[i] < members[j]
		}
		return ci.GreaterThan(cj)
	})

	charged := decimal.Zero
	for _, member := range members {
		share := utilized.Mul(m.contributions[member]).Div(m.available).RoundDown(2)
		charges[member] = share
		charged = charged.Add(share)
	}
	if residue := utilized.Sub(charged); !residue.IsZero() && len(members) > 0 {
		charges[members[0]] = charges[members[0]].Add(residue)
	}
	return charges
}

// CapitalReserve is the CCP's additional capital.
type CapitalReserve struct{ capped }

// NewCapitalReserve creates layer 5.
func NewCapitalReserve(amount decimal.Decimal) CapitalReserve {
	return CapitalReserve{capped{amount}}
}

// Kind implements Layer.
func (CapitalReserve) Kind() LayerKind { return KindCapitalReserve }
