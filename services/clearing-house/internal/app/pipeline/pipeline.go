// Package pipeline wires matching, novation, netting, margin and settlement
// together and runs the clearing house's background loops.
package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/order-reader/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/trade-publisher/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/netting"
	"github.com/shopspring/decimal"
)

// Matcher is the matching engine as seen by the pipeline.
type Matcher interface {
	Start()
	Stop(ctx context.Context) error
	Instruments() []string
	SubmitAt(ctx context.Context, order *orderbookv1.Order, offset int64) (*orderbookv1.SubmitResult, error)
	CancelAt(ctx context.Context, instrument, orderID string, offset int64) (*orderbookv1.Order, error)
	ExpireAll(ctx context.Context, now time.Time) (map[string][]*orderbookv1.Order, error)
	Snapshot(ctx context.Context, instrument string) (*snapshotv1.Snapshot, error)
	Restore(ctx context.Context, snapshot *snapshotv1.Snapshot) error
}

// Novator substitutes the CCP into trades.
type Novator interface {
	Novate(ctx context.Context, trade orderbookv1.Trade) (buyer, seller novationv1.NovatedExposure, err error)
}

// Netter accumulates exposures and closes cycles.
type Netter interface {
	Reserve(date time.Time) (*netting.Reservation, error)
	NextOpenDate(date time.Time) time.Time
	OpenDates() []time.Time
	Cycle(ctx context.Context, date time.Time) (*nettingv1.NettingCycle, error)
	CloseCycle(ctx context.Context, date time.Time) (*nettingv1.NettingCycle, error)
	MarkSettled(ctx context.Context, date time.Time) error
	Restore(ctx context.Context, exposures []novationv1.NovatedExposure) error
}

// Margin revalues accounts and escalates overdue calls.
type Margin interface {
	RevalueAll(ctx context.Context) error
	CheckOverdue(ctx context.Context, now time.Time) ([]marginv1.MarginCall, error)
}

// Settler settles closed cycles and times out stuck settlements.
type Settler interface {
	SettleCycle(ctx context.Context, cycle *nettingv1.NettingCycle) ([]*settlementv1.DvpSettlement, error)
	Sweep(ctx context.Context, now time.Time) ([]*settlementv1.DvpSettlement, error)
}

// PriceRecorder stores traded prices for marking and VaR.
type PriceRecorder interface {
	Record(ctx context.Context, instrument string, price decimal.Decimal, at time.Time) error
}

// Dependencies are the components the pipeline drives. Reader and Publisher
// are optional.
type Dependencies struct {
	Matching   Matcher
	Journal    orderbookv1.TradeJournal
	Novation   Novator
	Netting    Netter
	Exposures  novationv1.Store
	Margin     Margin
	Settlement Settler
	Snapshots  snapshotv1.Store
	Prices     PriceRecorder
	Reader     orderreaderv1.OrderReader
	Publisher  tradepublisherv1.TradePublisher
}

// Options configures the loops.
type Options struct {
	SnapshotInterval  time.Duration
	ExpiryInterval    time.Duration
	RevaluationPeriod time.Duration
	SweepInterval     time.Duration
	// Cutoff is the offset from midnight UTC at which a settlement date's cycle closes.
	Cutoff         time.Duration
	CCPAccount     string
	JournalRetries uint64
	RetryInterval  time.Duration
	Clock          func() time.Time
}

// Pipeline runs order intake, clearing and the periodic jobs.
type Pipeline struct {
	deps   Dependencies
	logger logger.Interface
	opts   Options

	mu sync.Mutex
	// applied is the last intake offset already in each restored book.
	applied map[string]int64
	// saved is the offset of the last stored snapshot per instrument.
	saved map[string]int64
	// pending holds closed cycles that still need settling.
	pending map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pipeline.
func New(deps Dependencies, logger logger.Interface, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.JournalRetries == 0 {
		opts.JournalRetries = 5
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 100 * time.Millisecond
	}
	return &Pipeline{
		deps:    deps,
		logger:  logger,
		opts:    opts,
		applied: make(map[string]int64),
		saved:   make(map[string]int64),
		pending: make(map[string]time.Time),
	}
}

// Start starts matching, recovers state and launches the loops.
func (p *Pipeline) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.deps.Matching.Start()
	if err := p.Recover(p.ctx); err != nil {
		p.cancel()
		return err
	}

	if p.deps.Reader != nil {
		p.wg.Add(1)
		go p.runOrderProcessor()
	}
	p.startTicker("snapshot", p.opts.SnapshotInterval, func(ctx context.Context, _ time.Time) error {
		return p.SnapshotAll(ctx)
	})
	p.startTicker("expiry", p.opts.ExpiryInterval, func(ctx context.Context, now time.Time) error {
		_, err := p.deps.Matching.ExpireAll(ctx, now)
		return err
	})
	p.startTicker("revaluation", p.opts.RevaluationPeriod, p.Revalue)
	p.startTicker("settlement", p.opts.SweepInterval, func(ctx context.Context, now time.Time) error {
		_, sweepErr := p.deps.Settlement.Sweep(ctx, now)
		return stderrors.Join(sweepErr, p.SettleDue(ctx, now))
	})

	p.logger.Info("Clearing pipeline started", logger.Field{Key: "instruments", Value: p.deps.Matching.Instruments()})
	return nil
}

// Stop cancels the loops, waits for them or for ctx, snapshots every book and
// stops matching.
func (p *Pipeline) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("Pipeline stop timeout exceeded")
		return ctx.Err()
	}

	var errs []error
	if err := p.SnapshotAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := p.deps.Matching.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if p.deps.Publisher != nil {
		if err := p.deps.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.logger.Info("Clearing pipeline stopped")
	return stderrors.Join(errs...)
}

// Recover restores the books from their snapshots, rebuilds netting from the
// unsettled exposures and clears journaled trades that were never novated.
func (p *Pipeline) Recover(ctx context.Context) error {
	for _, instrument := range p.deps.Matching.Instruments() {
		snap, err := p.deps.Snapshots.Load(ctx, instrument)
		if err != nil {
			return errors.NewTracer("load snapshot of " + instrument).Wrap(err)
		}
		if snap == nil {
			continue
		}
		if err := p.deps.Matching.Restore(ctx, snap); err != nil {
			return err
		}
		p.mu.Lock()
		p.applied[instrument] = snap.OrderOffset
		p.saved[instrument] = snap.OrderOffset
		p.mu.Unlock()
	}

	exposures, err := p.deps.Exposures.Unsettled(ctx)
	if err != nil {
		return errors.NewTracer("load unsettled exposures").Wrap(err)
	}
	if err := p.deps.Netting.Restore(ctx, exposures); err != nil {
		return err
	}
	if err := p.queueClosedCycles(ctx, exposures); err != nil {
		return err
	}

	trades, err := p.deps.Journal.Unnovated(ctx)
	if err != nil {
		return errors.NewTracer("load unnovated trades").Wrap(err)
	}
	for _, trade := range trades {
		if _, err := p.clear(ctx, trade); err != nil {
			return err
		}
	}

	p.logger.InfoContext(ctx, "Pipeline recovered",
		logger.Field{Key: "exposures", Value: len(exposures)},
		logger.Field{Key: "unnovatedTrades", Value: len(trades)},
	)
	return nil
}

// queueClosedCycles remembers restored cycles that closed but never settled.
func (p *Pipeline) queueClosedCycles(ctx context.Context, exposures []novationv1.NovatedExposure) error {
	seen := make(map[string]bool)
	for _, x := range exposures {
		key := util.DayKey(x.SettlementDate)
		if seen[key] {
			continue
		}
		seen[key] = true

		cycle, err := p.deps.Netting.Cycle(ctx, x.SettlementDate)
		if err != nil {
			return errors.NewTracer("load netting cycle " + key).Wrap(err)
		}
		if cycle.Status == nettingv1.CycleClosed {
			p.mu.Lock()
			p.pending[key] = cycle.SettlementDate
			p.mu.Unlock()
		}
	}
	return nil
}

// startTicker runs fn every interval until the pipeline stops. A zero interval
// disables the loop.
func (p *Pipeline) startTicker(name string, interval time.Duration, fn func(ctx context.Context, now time.Time) error) {
	if interval <= 0 {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				p.logger.Debug("Loop shutting down", logger.Field{Key: "loop", Value: name})
				return
			case <-ticker.C:
				if err := fn(p.ctx, p.opts.Clock()); err != nil && p.ctx.Err() == nil {
					p.logger.ErrorContext(p.ctx, err, logger.Field{Key: "loop", Value: name})
				}
			}
		}
	}()
}
