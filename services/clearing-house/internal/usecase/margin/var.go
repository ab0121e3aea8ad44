package margin

import (
	"math"
	"sort"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/shopspring/decimal"
)

const returnPrecision = 12

// VaRParams configures the historical simulation.
type VaRParams struct {
	Confidence        float64
	HoldingPeriodDays int
	MinObservations   int
	FallbackRate      decimal.Decimal
}

// VaRResult is the initial margin of a portfolio and its split per instrument.
type VaRResult struct {
	Total         decimal.Decimal
	Contributions map[string]decimal.Decimal
	Scenarios     int
	Fallback      bool
}

// HistoricalVaR values positions under every joint historical return
// scenario and takes the loss at the configured confidence. Instrument
// contributions are the instrument P&L in the tail scenario, so they add up
// to the total. With fewer aligned returns than MinObservations it charges
// FallbackRate of gross notional instead.
func HistoricalVaR(
	positions []nettingv1.Position,
	marks map[string]decimal.Decimal,
	closes map[string][]marginv1.PricePoint,
	params VaRParams,
) VaRResult {
	exposure := make(map[string]decimal.Decimal)
	for _, p := range positions {
		exposure[p.Instrument] = exposure[p.Instrument].Add(p.Quantity.Mul(marks[p.Instrument]))
	}
	instruments := make([]string, 0, len(exposure))
	for instrument, value := range exposure {
		if !value.IsZero() {
			instruments = append(instruments, instrument)
		}
	}
	sort.Strings(instruments)

	result := VaRResult{Total: decimal.Zero, Contributions: make(map[string]decimal.Decimal)}
	if len(instruments) == 0 {
		return result
	}

	returns := alignedReturns(instruments, closes)
	if len(returns) < params.MinObservations || len(returns) == 0 {
		return fallback(instruments, exposure, params.FallbackRate)
	}

	type scenario struct {
		pnl    decimal.Decimal
		byInst []decimal.Decimal
	}
	scenarios := make([]scenario, len(returns))
	for s, row := range returns {
		sc := scenario{pnl: decimal.Zero, byInst: make([]decimal.Decimal, len(instruments))}
		for i, instrument := range instruments {
			pnl := exposure[instrument].Mul(row[i])
			sc.byInst[i] = pnl
			sc.pnl = sc.pnl.Add(pnl)
		}
		scenarios[s] = sc
	}
	sort.SliceStable(scenarios, func(i, j int) bool { return scenarios[i].pnl.LessThan(scenarios[j].pnl) })

	idx := int(math.Floor((1 - params.Confidence) * float64(len(scenarios))))
	if idx >= len(scenarios) {
		idx = len(scenarios) - 1
	}
	if idx < 0 {
		idx = 0
	}
	tail := scenarios[idx]

	result.Scenarios = len(scenarios)
	if !tail.pnl.IsNegative() {
		return result
	}

	scale := decimal.NewFromFloat(math.Sqrt(float64(max(params.HoldingPeriodDays, 1))))
	total := decimal.Zero
	for i, instrument := range instruments {
		c := tail.byInst[i].Neg().Mul(scale).Round(2)
		result.Contributions[instrument] = c
		total = total.Add(c)
	}
	result.Total = total
	return result
}

func fallback(instruments []string, exposure map[string]decimal.Decimal, rate decimal.Decimal) VaRResult {
	result := VaRResult{Total: decimal.Zero, Contributions: make(map[string]decimal.Decimal), Fallback: true}
	for _, instrument := range instruments {
		c := exposure[instrument].Abs().Mul(rate).Round(2)
		result.Contributions[instrument] = c
		result.Total = result.Total.Add(c)
	}
	return result
}

// alignedReturns returns one row of daily returns per day on which every
// instrument has a close and so did the previous aligned day.
func alignedReturns(instruments []string, closes map[string][]marginv1.PricePoint) [][]decimal.Decimal {
	byDay := make(map[string][]decimal.Decimal)
	days := make(map[string]time.Time)
	for i, instrument := range instruments {
		for _, point := range closes[instrument] {
			key := util.DayKey(point.Day)
			row, ok := byDay[key]
			if !ok {
				if i > 0 {
					continue
				}
				row = make([]decimal.Decimal, len(instruments))
				days[key] = point.Day
			}
			row[i] = point.Close
			byDay[key] = row
		}
	}

	var common []string
	for key, row := range byDay {
		complete := true
		for _, c := range row {
			if !c.IsPositive() {
				complete = false
				break
			}
		}
		if complete {
			common = append(common, key)
		}
	}
	sort.Slice(common, func(i, j int) bool { return days[common[i]].Before(days[common[j]]) })

	out := make([][]decimal.Decimal, 0, len(common))
	for d := 1; d < len(common); d++ {
		prev, cur := byDay[common[d-1]], byDay[common[d]]
		row := make([]decimal.Decimal, len(instruments))
		for i := range instruments {
			row[i] = cur[i].DivRound(prev[i], returnPrecision).Sub(decimal.NewFromInt(1))
		}
		out = append(out, row)
	}
	return out
}
