package netting

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/shopspring/decimal"
)

var (
	// ErrCloseInProgress is returned when a cycle is already being closed.
	ErrCloseInProgress = stderrors.New("netting cycle close already in progress")
	// ErrReservationReleased is returned by Add after Release.
	ErrReservationReleased = stderrors.New("netting reservation already released")
)

type cycle struct {
	date      time.Time
	status    nettingv1.CycleStatus
	exposures []novationv1.NovatedExposure
	inflight  int
	drained   chan struct{}
	closed    *nettingv1.NettingCycle
	persisted bool
}

// Engine accumulates exposures into per-settlement-date cycles and nets them
// into obligations.
type Engine struct {
	repo       nettingv1.Repository
	store      novationv1.Store
	ccpAccount string
	clock      func() time.Time
	logger     logger.Interface

	mu     sync.Mutex
	cycles map[string]*cycle
}

// NewEngine creates a netting engine.
func NewEngine(repo nettingv1.Repository, store novationv1.Store, ccpAccount string, clock func() time.Time, logger logger.Interface) *Engine {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		repo:       repo,
		store:      store,
		ccpAccount: ccpAccount,
		clock:      clock,
		logger:     logger,
		cycles:     make(map[string]*cycle),
	}
}

// cycleFor returns the cycle of date, creating an open one. Callers hold mu.
func (e *Engine) cycleFor(date time.Time) *cycle {
	key := util.DayKey(date)
	c, ok := e.cycles[key]
	if !ok {
		c = &cycle{date: util.TruncateDay(date), status: nettingv1.CycleOpen}
		e.cycles[key] = c
	}
	return c
}

// Reservation is an in-flight addition to one cycle. CloseCycle waits for
// every reservation to be released before aggregating, and only a
// reservation can add to a cycle that is closing.
type Reservation struct {
	engine   *Engine
	cycle    *cycle
	released bool
}

// Reserve registers an in-flight addition to the cycle of date.
func (e *Engine) Reserve(date time.Time) (*Reservation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.cycleFor(date)
	if !c.status.AcceptsExposures() {
		return nil, nettingv1.ErrCycleClosed
	}
	c.inflight++
	return &Reservation{engine: e, cycle: c}, nil
}

// Date is the settlement date of the reserved cycle.
func (r *Reservation) Date() time.Time {
	return r.cycle.date
}

// Add adds the legs of one trade to the reserved cycle.
func (r *Reservation) Add(_ context.Context, exposures ...novationv1.NovatedExposure) error {
	if len(exposures) == 0 {
		return nil
	}
	if err := sameDate(r.cycle.date, exposures); err != nil {
		return err
	}

	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	if r.released {
		return ErrReservationReleased
	}
	r.cycle.exposures = append(r.cycle.exposures, exposures...)
	return nil
}

// Release ends the reservation. Releasing twice is a no-op.
func (r *Reservation) Release() {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	c := r.cycle
	c.inflight--
	if c.inflight == 0 && c.drained != nil {
		close(c.drained)
		c.drained = nil
	}
}

func sameDate(date time.Time, exposures []novationv1.NovatedExposure) error {
	for _, x := range exposures {
		if !util.TruncateDay(x.SettlementDate).Equal(date) {
			return nettingv1.ErrMixedSettlementDates
		}
	}
	return nil
}

// AddExposures adds the legs of one trade to their cycle, which must be
// open. Additions that have to land while the cycle closes go through a
// Reservation.
func (e *Engine) AddExposures(_ context.Context, exposures ...novationv1.NovatedExposure) error {
	if len(exposures) == 0 {
		return nil
	}
	date := util.TruncateDay(exposures[0].SettlementDate)
	if err := sameDate(date, exposures[1:]); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.cycleFor(date)
	if !c.status.AcceptsExposures() {
		return nettingv1.ErrCycleClosed
	}
	c.exposures = append(c.exposures, exposures...)
	return nil
}

// CloseCycle closes the cycle of date and nets its exposures. A cycle that
// does not sum to zero is halted and ErrNettingImbalance is returned along
// with the halted cycle. Closing a closed cycle returns it again.
func (e *Engine) CloseCycle(ctx context.Context, date time.Time) (*nettingv1.NettingCycle, error) {
	e.mu.Lock()
	c := e.cycleFor(date)

	switch c.status {
	case nettingv1.CycleClosed, nettingv1.CycleSettled, nettingv1.CycleHalted:
		e.mu.Unlock()
		return e.finishClose(ctx, c)
	case nettingv1.CycleClosing:
		e.mu.Unlock()
		return nil, ErrCloseInProgress
	}

	c.status = nettingv1.CycleClosing
	var drained chan struct{}
	if c.inflight > 0 {
		drained = make(chan struct{})
		c.drained = drained
	}
	e.mu.Unlock()

	if drained != nil {
		select {
		case <-drained:
		case <-ctx.Done():
			e.mu.Lock()
			c.status = nettingv1.CycleOpen
			c.drained = nil
			e.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	result := aggregate(c.date, c.exposures)
	now := e.clock()
	result.ClosedAt = &now
	result.Status = nettingv1.CycleClosed
	if err := result.CheckBalanced(); err != nil {
		result.Status = nettingv1.CycleHalted
		result.Reason = err.Error()
	}
	c.status = result.Status
	c.closed = result
	e.mu.Unlock()

	if result.Status == nettingv1.CycleHalted {
		metrics.CyclesTotal.WithLabelValues(string(nettingv1.CycleHalted)).Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues(string(nettingv1.CycleClosed)).Inc()
		e.logger.InfoContext(ctx, "netting cycle closed",
			logger.Field{Key: "settlementDate", Value: util.DayKey(c.date)},
			logger.Field{Key: "obligations", Value: len(result.Obligations)},
			logger.Field{Key: "exposures", Value: result.ExposureCount},
		)
	}
	return e.finishClose(ctx, c)
}

// finishClose persists the closed cycle once and returns a copy.
func (e *Engine) finishClose(ctx context.Context, c *cycle) (*nettingv1.NettingCycle, error) {
	e.mu.Lock()
	closed := c.closed.Clone()
	persisted := c.persisted
	e.mu.Unlock()

	if !persisted {
		if err := e.repo.SaveCycle(ctx, closed); err != nil {
			return closed, errors.NewTracer("save netting cycle").Wrap(err)
		}
		e.mu.Lock()
		c.persisted = true
		e.mu.Unlock()
	}

	if closed.Status == nettingv1.CycleHalted {
		err := errors.NewTracer(fmt.Sprintf("netting cycle %s halted", util.DayKey(closed.SettlementDate))).
			Wrap(fmt.Errorf("%s: %w", closed.Reason, nettingv1.ErrNettingImbalance)).
			WithSeverity(errors.SeverityCritical)
		e.logger.ErrorContext(ctx, err, logger.Field{Key: "settlementDate", Value: util.DayKey(closed.SettlementDate)})
		return closed, err
	}
	return closed, nil
}

// aggregate nets exposures into one obligation per member and currency.
func aggregate(date time.Time, exposures []novationv1.NovatedExposure) *nettingv1.NettingCycle {
	type key struct{ member, currency string }
	byKey := make(map[key]*nettingv1.NetObligation)

	for _, x := range exposures {
		k := key{x.MemberID, x.Currency}
		o, ok := byKey[k]
		if !ok {
			o = &nettingv1.NetObligation{
				ID:             nettingv1.ObligationID(date, x.MemberID, x.Currency),
				SettlementDate: date,
				MemberID:       x.MemberID,
				Currency:       x.Currency,
				Amount:         decimal.Zero,
				Deliveries:     make(map[string]decimal.Decimal),
			}
			byKey[k] = o
		}
		o.Amount = o.Amount.Add(x.SignedAmount())
		if x.Instrument != "" && !x.Quantity.IsZero() {
			o.Deliveries[x.Instrument] = o.Deliveries[x.Instrument].Add(x.SignedDelivery())
		}
	}

	obligations := make([]nettingv1.NetObligation, 0, len(byKey))
	for _, o := range byKey {
		for instrument, qty := range o.Deliveries {
			if qty.IsZero() {
				delete(o.Deliveries, instrument)
			}
		}
		obligations = append(obligations, *o)
	}
	sort.Slice(obligations, func(i, j int) bool {
		if obligations[i].MemberID != obligations[j].MemberID {
			return obligations[i].MemberID < obligations[j].MemberID
		}
		return obligations[i].Currency < obligations[j].Currency
	})

	return &nettingv1.NettingCycle{
		SettlementDate: date,
		Obligations:    obligations,
		ExposureCount:  len(exposures),
	}
}

// Cycle returns a copy of the cycle of date. Open cycles are netted on the
// fly and keep their open status.
func (e *Engine) Cycle(ctx context.Context, date time.Time) (*nettingv1.NettingCycle, error) {
	e.mu.Lock()
	c, ok := e.cycles[util.DayKey(date)]
	if ok {
		defer e.mu.Unlock()
		if c.closed != nil {
			out := c.closed.Clone()
			out.Status = c.status
			return out, nil
		}
		out := aggregate(c.date, c.exposures)
		out.Status = c.status
		return out, nil
	}
	e.mu.Unlock()

	stored, err := e.repo.GetCycle(ctx, date)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// NextOpenDate returns date, or the first later day whose cycle still accepts exposures.
func (e *Engine) NextOpenDate(date time.Time) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextOpenDate(date)
}

func (e *Engine) nextOpenDate(date time.Time) time.Time {
	d := util.TruncateDay(date)
	for {
		c, ok := e.cycles[util.DayKey(d)]
		if !ok || c.status.AcceptsExposures() {
			return d
		}
		d = util.AddDays(d, 1)
	}
}

// OpenDates lists the dates of cycles still accepting exposures, oldest first.
func (e *Engine) OpenDates() []time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dates []time.Time
	for _, c := range e.cycles {
		if c.status.AcceptsExposures() {
			dates = append(dates, c.date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// MarkSettled moves a closed cycle to settled. Its exposures stop counting as
// open positions.
func (e *Engine) MarkSettled(ctx context.Context, date time.Time) error {
	e.mu.Lock()
	c, ok := e.cycles[util.DayKey(date)]
	if !ok {
		e.mu.Unlock()
		return nettingv1.ErrCycleNotFound
	}
	if c.status == nettingv1.CycleSettled {
		e.mu.Unlock()
		return nil
	}
	if c.status != nettingv1.CycleClosed {
		e.mu.Unlock()
		return nettingv1.ErrCycleNotClosed
	}
	c.status = nettingv1.CycleSettled
	e.mu.Unlock()

	if err := e.repo.UpdateStatus(ctx, date, nettingv1.CycleSettled); err != nil {
		return errors.NewTracer("update cycle status").Wrap(err)
	}
	if err := e.store.MarkSettled(ctx, date); err != nil {
		return errors.NewTracer("mark exposures settled").Wrap(err)
	}
	return nil
}

// Restore rebuilds cycles from unsettled exposures. Cycles already persisted
// as closed or halted come back closed.
func (e *Engine) Restore(ctx context.Context, exposures []novationv1.NovatedExposure) error {
	byDate := make(map[string][]novationv1.NovatedExposure)
	for _, x := range exposures {
		key := util.DayKey(x.SettlementDate)
		byDate[key] = append(byDate[key], x)
	}

	for key, xs := range byDate {
		date := util.TruncateDay(xs[0].SettlementDate)
		stored, err := e.repo.GetCycle(ctx, date)
		if err != nil && !stderrors.Is(err, nettingv1.ErrCycleNotFound) {
			return errors.NewTracer("load netting cycle " + key).Wrap(err)
		}

		e.mu.Lock()
		c := e.cycleFor(date)
		c.exposures = append(c.exposures[:0], xs...)
		if stored != nil && stored.Status != nettingv1.CycleOpen {
			c.status = stored.Status
			c.closed = stored
			c.persisted = true
		}
		e.mu.Unlock()
	}

	e.logger.InfoContext(ctx, "netting restored",
		logger.Field{Key: "exposures", Value: len(exposures)},
		logger.Field{Key: "cycles", Value: len(byDate)},
	)
	return nil
}
