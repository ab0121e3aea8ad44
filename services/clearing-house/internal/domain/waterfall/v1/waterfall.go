package waterfallv1

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Waterfall is the fixed sequence of the five layers. The constructor's
// parameter types pin the order.
type Waterfall struct {
	margin       DefaulterMargin
	contribution DefaulterContribution
	skin         SkinInTheGame
	mutualized   MutualizedFund
	reserve      CapitalReserve
}

// NewWaterfall builds the waterfall in its only legal order.
func NewWaterfall(margin DefaulterMargin, contribution DefaulterContribution, skin SkinInTheGame, mutualized MutualizedFund, reserve CapitalReserve) Waterfall {
	return Waterfall{
		margin:       margin,
		contribution: contribution,
		skin:         skin,
		mutualized:   mutualized,
		reserve:      reserve,
	}
}

// Layers returns the layers in application order.
func (w Waterfall) Layers() []Layer {
	return []Layer{w.margin, w.contribution, w.skin, w.mutualized, w.reserve}
}

// LayerApplication records what one layer absorbed.
type LayerApplication struct {
	Order     int                        `json:"order"`
	Kind      LayerKind                  `json:"kind"`
	Available decimal.Decimal            `json:"available"`
	Utilized  decimal.Decimal            `json:"utilized"`
	Charges   map[string]decimal.Decimal `json:"charges,omitempty"`
}

// Allocation is the result of running the waterfall over a loss.
type Allocation struct {
	Applications []LayerApplication `json:"applications"`
	Recovered    decimal.Decimal    `json:"recovered"`
	Unrecovered  decimal.Decimal    `json:"unrecovered"`
}

// Allocate applies loss layer by layer and stops once it is covered.
func (w Waterfall) Allocate(loss decimal.Decimal) (Allocation, error) {
	remaining := loss
	alloc := Allocation{Recovered: decimal.Zero}
	totalAvailable := decimal.Zero

	for i, layer := range w.Layers() {
		available := layer.Available()
		totalAvailable = totalAvailable.Add(available)

		app := LayerApplication{Order: i + 1, Kind: layer.Kind(), Available: available, Utilized: decimal.Zero}
		if remaining.IsPositive() {
			app.Utilized = layer.Apply(remaining)
			remaining = remaining.Sub(app.Utilized)
		}
		if m, ok := layer.(MutualizedFund); ok {
			app.Charges = m.Charges(app.Utilized)
		}
		alloc.Applications = append(alloc.Applications, app)
		alloc.Recovered = alloc.Recovered.Add(app.Utilized)
	}

	alloc.Unrecovered = decimal.Max(remaining, decimal.Zero)
	if err := CheckAllocation(loss, totalAvailable, alloc); err != nil {
		return alloc, err
	}
	return alloc, nil
}

// CheckAllocation verifies utilization equals min(loss, available), never
// exceeds loss, and each layer stays within its availability.
func CheckAllocation(loss, totalAvailable decimal.Decimal, alloc Allocation) error {
	utilized := decimal.Zero
	for _, app := range alloc.Applications {
		if app.Utilized.IsNegative() || app.Utilized.GreaterThan(app.Available) {
			return fmt.Errorf("%w: layer %s utilized %s of %s", ErrWaterfallInvariant, app.Kind, app.Utilized, app.Available)
		}
		utilized = utilized.Add(app.Utilized)
	}
	want := decimal.Max(decimal.Min(loss, totalAvailable), decimal.Zero)
	if !utilized.Equal(want) || utilized.GreaterThan(decimal.Max(loss, decimal.Zero)) {
		return fmt.Errorf("%w: utilized %s, want %s", ErrWaterfallInvariant, utilized, want)
	}
	return nil
}
