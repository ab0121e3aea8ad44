package margin

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Options configures the Engine.
type Options struct {
	VaR               VaRParams
	LookbackDays      int
	CallGracePeriod   time.Duration
	Concurrency       int
	MaxVersionRetries uint64
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		VaR: VaRParams{
			Confidence:        0.99,
			HoldingPeriodDays: 2,
			MinObservations:   20,
			FallbackRate:      decimal.RequireFromString("0.10"),
		},
		LookbackDays:      250,
		CallGracePeriod:   2 * time.Hour,
		Concurrency:       8,
		MaxVersionRetries: 5,
	}
}

// Engine computes initial and variation margin and manages margin calls.
type Engine struct {
	store     marginv1.AccountStore
	positions marginv1.PositionSource
	prices    collaboratorv1.PriceReference
	history   marginv1.PriceHistory
	clock     marginv1.Clock
	logger    logger.Interface
	opts      Options

	mu       sync.RWMutex
	defaults marginv1.DefaultHandler
}

// NewEngine creates a margin engine.
func NewEngine(
	store marginv1.AccountStore,
	positions marginv1.PositionSource,
	prices collaboratorv1.PriceReference,
	history marginv1.PriceHistory,
	clock marginv1.Clock,
	logger logger.Interface,
	opts Options,
) *Engine {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Engine{
		store:     store,
		positions: positions,
		prices:    prices,
		history:   history,
		clock:     clock,
		logger:    logger,
		opts:      opts,
	}
}

// SetDefaultHandler wires the handler invoked for overdue calls.
func (e *Engine) SetDefaultHandler(handler marginv1.DefaultHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults = handler
}

func (e *Engine) defaultHandler() marginv1.DefaultHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaults
}

// update loads the member's account, applies fn and saves it, retrying with
// exponential backoff when another writer got there first.
func (e *Engine) update(ctx context.Context, memberID string, fn func(account *marginv1.MarginAccount) error) (*marginv1.MarginAccount, error) {
	var saved *marginv1.MarginAccount

	op := func() error {
		account, err := e.load(ctx, memberID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := fn(account); err != nil {
			return backoff.Permanent(err)
		}
		if err := e.store.Save(ctx, account); err != nil {
			if stderrors.Is(err, marginv1.ErrVersionConflict) {
				metrics.VersionConflictsTotal.WithLabelValues("margin_account").Inc()
				return err
			}
			return backoff.Permanent(err)
		}
		saved = account
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.opts.MaxVersionRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return saved, nil
}

func (e *Engine) load(ctx context.Context, memberID string) (*marginv1.MarginAccount, error) {
	account, err := e.store.Get(ctx, memberID)
	if stderrors.Is(err, marginv1.ErrAccountNotFound) {
		return marginv1.NewMarginAccount(memberID), nil
	}
	if err != nil {
		return nil, errors.NewTracer("get margin account").Wrap(err)
	}
	return account, nil
}

// Account returns the member's margin account.
func (e *Engine) Account(ctx context.Context, memberID string) (*marginv1.MarginAccount, error) {
	return e.store.Get(ctx, memberID)
}

// OutstandingVariation returns the variation margin the member still owes.
// A member without an account owes nothing.
func (e *Engine) OutstandingVariation(ctx context.Context, memberID string) (decimal.Decimal, error) {
	account, err := e.store.Get(ctx, memberID)
	if stderrors.Is(err, marginv1.ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, errors.NewTracer("get margin account " + memberID).Wrap(err)
	}
	return account.VariationMargin, nil
}

// Revalue recomputes initial margin, marks open positions to market, moves
// variation margin and opens or cures margin calls.
func (e *Engine) Revalue(ctx context.Context, memberID string) (*marginv1.MarginAccount, error) {
	started := time.Now()
	defer func() {
		metrics.RevaluationDuration.Observe(float64(time.Since(started).Milliseconds()))
	}()

	positions := e.positions.OpenPositions(memberID)
	marks, err := e.marks(ctx, positions)
	if err != nil {
		return nil, err
	}
	im, err := e.initialMargin(ctx, positions, marks)
	if err != nil {
		return nil, err
	}

	unrealized := make(map[string]decimal.Decimal)
	for _, p := range positions {
		unrealized[p.Instrument] = unrealized[p.Instrument].Add(p.Unrealized(marks[p.Instrument]))
	}

	return e.update(ctx, memberID, func(account *marginv1.MarginAccount) error {
		now := e.clock()

		delta := decimal.Zero
		total := decimal.Zero
		for instrument, u := range unrealized {
			delta = delta.Add(u.Sub(account.Unrealized[instrument]))
			total = total.Add(u)
		}
		applyVariation(account, delta)

		// DvP settled these at trade price, so the variation booked on them
		// is reversed.
		settled := decimal.Zero
		for instrument, prev := range account.Unrealized {
			if _, open := unrealized[instrument]; !open {
				settled = settled.Sub(prev)
			}
		}
		closeOut(account, settled)

		account.Unrealized = unrealized
		account.UnrealizedPnL = total
		account.InitialMargin = im.Total
		account.Contributions = im.Contributions
		account.RevaluedAt = now
		account.Recompute()
		e.reconcileCall(ctx, account, now)
		return nil
	})
}

// applyVariation books a mark-to-market change. Losses add to the outstanding
// variation margin, gains pay it down first and the rest is credited as cash.
func applyVariation(account *marginv1.MarginAccount, delta decimal.Decimal) {
	if delta.IsNegative() {
		account.VariationMargin = account.VariationMargin.Add(delta.Neg())
		return
	}
	paid := decimal.Min(delta, account.VariationMargin)
	account.VariationMargin = account.VariationMargin.Sub(paid)
	if credit := delta.Sub(paid); credit.IsPositive() {
		account.AddCash("vm-"+ulid.Make().String(), credit)
	}
}

// closeOut reverses the variation margin of settled positions. A reversed
// loss pays down outstanding variation margin and refunds the rest as cash. A
// reversed gain claws back cash first and leaves the rest outstanding.
func closeOut(account *marginv1.MarginAccount, amount decimal.Decimal) {
	if !amount.IsNegative() {
		applyVariation(account, amount)
		return
	}
	if owed := account.DebitCash(amount.Neg()); owed.IsPositive() {
		account.VariationMargin = account.VariationMargin.Add(owed)
	}
}

func (e *Engine) reconcileCall(ctx context.Context, account *marginv1.MarginAccount, now time.Time) {
	call := account.OpenCall()
	switch {
	case account.Deficit.IsPositive() && call != nil:
		call.Amount = account.Deficit
	case account.Deficit.IsPositive():
		account.Calls = append(account.Calls, marginv1.MarginCall{
			ID:       ulid.Make().String(),
			MemberID: account.MemberID,
			Amount:   account.Deficit,
			IssuedAt: now,
			DueAt:    now.Add(e.opts.CallGracePeriod),
			Status:   marginv1.CallOpen,
		})
		metrics.MarginCallsTotal.WithLabelValues(string(marginv1.CallOpen)).Inc()
		e.logger.WarnContext(ctx, "margin call issued",
			logger.Field{Key: "memberID", Value: account.MemberID},
			logger.Field{Key: "amount", Value: account.Deficit.String()},
		)
	case call != nil:
		call.Status = marginv1.CallCured
		call.ClosedAt = &now
		metrics.MarginCallsTotal.WithLabelValues(string(marginv1.CallCured)).Inc()
		e.logger.InfoContext(ctx, "margin call cured",
			logger.Field{Key: "memberID", Value: account.MemberID},
			logger.Field{Key: "callID", Value: call.ID},
		)
	}
}

func (e *Engine) marks(ctx context.Context, positions []nettingv1.Position) (map[string]decimal.Decimal, error) {
	marks := make(map[string]decimal.Decimal)
	for _, p := range positions {
		if _, ok := marks[p.Instrument]; ok {
			continue
		}
		price, err := e.prices.LatestPrice(ctx, p.Instrument)
		if err != nil {
			return nil, errors.NewTracer("latest price of " + p.Instrument).Wrap(err)
		}
		marks[p.Instrument] = price
	}
	return marks, nil
}

func (e *Engine) initialMargin(ctx context.Context, positions []nettingv1.Position, marks map[string]decimal.Decimal) (VaRResult, error) {
	closes := make(map[string][]marginv1.PricePoint)
	for instrument := range marks {
		points, err := e.history.DailyCloses(ctx, instrument, e.opts.LookbackDays+1)
		if err != nil {
			return VaRResult{}, errors.NewTracer("price history of " + instrument).Wrap(err)
		}
		closes[instrument] = points
	}
	return HistoricalVaR(positions, marks, closes, e.opts.VaR), nil
}

// RevalueAll revalues every member with an account or an open position,
// concurrently up to the configured limit.
func (e *Engine) RevalueAll(ctx context.Context) error {
	members, err := e.store.Members(ctx)
	if err != nil {
		return errors.NewTracer("list margin accounts").Wrap(err)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		seen[m] = true
	}
	for m := range e.positions.AllOpenPositions() {
		if !seen[m] {
			seen[m] = true
			members = append(members, m)
		}
	}
	sort.Strings(members)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, member := range members {
		g.Go(func() error {
			if _, err := e.Revalue(ctx, member); err != nil {
				e.logger.ErrorContext(ctx, err, logger.Field{Key: "memberID", Value: member})
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// PostCollateral adds collateral. Cash pays down outstanding variation
// margin before it is held as collateral.
func (e *Engine) PostCollateral(ctx context.Context, memberID string, item marginv1.CollateralItem) (*marginv1.MarginAccount, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}

	return e.update(ctx, memberID, func(account *marginv1.MarginAccount) error {
		if item.Type == marginv1.CollateralCash {
			paid := decimal.Min(item.Amount, account.VariationMargin)
			account.VariationMargin = account.VariationMargin.Sub(paid)
			item.Amount = item.Amount.Sub(paid)
		}
		if item.Amount.IsPositive() {
			account.Collateral = append(account.Collateral, item)
		}
		account.Recompute()
		e.reconcileCall(ctx, account, e.clock())
		return nil
	})
}

// CanTrade is the margin gate: defaulted members and members with an overdue
// call may not trade.
func (e *Engine) CanTrade(ctx context.Context, memberID string) (bool, error) {
	account, err := e.store.Get(ctx, memberID)
	if stderrors.Is(err, marginv1.ErrAccountNotFound) {
		return true, nil
	}
	if err != nil {
		return false, errors.NewTracer("get margin account").Wrap(err)
	}
	if account.Defaulted {
		return false, nil
	}
	if call := account.OpenCall(); call != nil && e.clock().After(call.DueAt) {
		return false, nil
	}
	return true, nil
}

// CheckOverdue defaults every open call past its due time and hands it to the
// default handler.
func (e *Engine) CheckOverdue(ctx context.Context, now time.Time) ([]marginv1.MarginCall, error) {
	members, err := e.store.Members(ctx)
	if err != nil {
		return nil, errors.NewTracer("list margin accounts").Wrap(err)
	}

	var (
		defaulted []marginv1.MarginCall
		errs      []error
	)
	for _, member := range members {
		var call *marginv1.MarginCall
		_, err := e.update(ctx, member, func(account *marginv1.MarginAccount) error {
			call = nil
			open := account.OpenCall()
			if open == nil || !now.After(open.DueAt) {
				return nil
			}
			open.Status = marginv1.CallDefaulted
			open.ClosedAt = &now
			account.Defaulted = true
			c := *open
			call = &c
			return nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if call == nil {
			continue
		}

		metrics.MarginCallsTotal.WithLabelValues(string(marginv1.CallDefaulted)).Inc()
		e.logger.WarnContext(ctx, "margin call defaulted",
			logger.Field{Key: "memberID", Value: member},
			logger.Field{Key: "callID", Value: call.ID},
			logger.Field{Key: "amount", Value: call.Amount.String()},
		)
		defaulted = append(defaulted, *call)

		if handler := e.defaultHandler(); handler != nil {
			if err := handler.HandleMarginDefault(ctx, *call); err != nil {
				errs = append(errs, errors.NewTracer("handle margin default").Wrap(err))
			}
		}
	}
	return defaulted, stderrors.Join(errs...)
}

// MarkDefaulted flags the member's account as defaulted.
func (e *Engine) MarkDefaulted(ctx context.Context, memberID string) error {
	_, err := e.update(ctx, memberID, func(account *marginv1.MarginAccount) error {
		account.Defaulted = true
		return nil
	})
	return err
}

// Seize takes all of a defaulted member's collateral and returns the
// haircut-adjusted value seized since default, so repeated calls report
// the same total.
func (e *Engine) Seize(ctx context.Context, memberID string) (decimal.Decimal, error) {
	seized := decimal.Zero
	_, err := e.update(ctx, memberID, func(account *marginv1.MarginAccount) error {
		if !account.Defaulted {
			return marginv1.ErrMemberNotDefaulted
		}
		account.Seized = account.Seized.Add(account.CollateralValue())
		seized = account.Seized
		account.Collateral = nil
		account.Recompute()
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	e.logger.WarnContext(ctx, "collateral seized",
		logger.Field{Key: "memberID", Value: memberID},
		logger.Field{Key: "value", Value: seized.String()},
	)
	return seized, nil
}
