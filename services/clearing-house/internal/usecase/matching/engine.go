package matching

import (
	"context"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/orderbook"
)

const defaultQueueSize = 1024

// Options configures the Engine.
type Options struct {
	Instruments []orderbookv1.Instrument
	SelfMatch   orderbookv1.SelfMatchPolicy
	QueueSize   int
	Clock       func() time.Time
}

// Engine runs one serial worker per instrument. Every book mutation happens on
// the worker that owns the book.
type Engine struct {
	registry collaboratorv1.MemberRegistry
	gate     orderbookv1.MarginGate
	logger   logger.Interface

	workers map[string]*worker

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

type worker struct {
	book     *orderbook.Orderbook
	commands chan command
}

type command struct {
	fn   func(book *orderbook.Orderbook)
	done chan struct{}
}

// NewEngine creates an engine with an empty book per configured instrument.
func NewEngine(
	registry collaboratorv1.MemberRegistry,
	gate orderbookv1.MarginGate,
	logger logger.Interface,
	opts Options,
) *Engine {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	e := &Engine{
		registry: registry,
		gate:     gate,
		logger:   logger,
		workers:  make(map[string]*worker, len(opts.Instruments)),
	}
	for _, instrument := range opts.Instruments {
		e.workers[instrument.Symbol] = &worker{
			book: orderbook.NewOrderbook(orderbook.Options{
				Instrument: instrument,
				SelfMatch:  opts.SelfMatch,
				Clock:      opts.Clock,
			}),
			commands: make(chan command, opts.QueueSize),
		}
	}
	return e
}

// Start launches the instrument workers.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true

	for symbol, w := range e.workers {
		e.wg.Add(1)
		go e.run(symbol, w)
	}

	e.logger.Info("matching engine started", logger.Field{Key: "instruments", Value: e.Instruments()})
}

// Stop drains every queue and waits for the workers, or for ctx.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	for _, w := range e.workers {
		close(w.commands)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("matching engine stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("matching engine stop timeout exceeded")
		return ctx.Err()
	}
}

func (e *Engine) run(symbol string, w *worker) {
	defer e.wg.Done()
	for cmd := range w.commands {
		metrics.QueueDepth.WithLabelValues(symbol).Set(float64(len(w.commands)))
		cmd.fn(w.book)
		close(cmd.done)
	}
}

// Instruments lists the symbols the engine trades.
func (e *Engine) Instruments() []string {
	symbols := make([]string, 0, len(e.workers))
	for symbol := range e.workers {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Instrument returns the configured instrument for symbol.
func (e *Engine) Instrument(symbol string) (orderbookv1.Instrument, bool) {
	w, ok := e.workers[symbol]
	if !ok {
		return orderbookv1.Instrument{}, false
	}
	return w.book.Instrument(), true
}

// exec queues fn on the instrument's worker and waits for it to run. Only the
// enqueue honours ctx: once queued the command always executes.
func (e *Engine) exec(ctx context.Context, symbol string, fn func(book *orderbook.Orderbook)) error {
	w, ok := e.workers[symbol]
	if !ok {
		return orderbookv1.ErrUnknownInstrument
	}

	e.mu.RLock()
	if !e.running {
		e.mu.RUnlock()
		return orderbookv1.ErrEngineStopped
	}
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case w.commands <- cmd:
	case <-ctx.Done():
		e.mu.RUnlock()
		return ctx.Err()
	}
	e.mu.RUnlock()

	<-cmd.done
	return nil
}

// Submit checks eligibility and the margin gate, then matches order on its
// instrument's worker. The returned order and trades are copies.
func (e *Engine) Submit(ctx context.Context, order *orderbookv1.Order) (*orderbookv1.SubmitResult, error) {
	return e.SubmitAt(ctx, order, -1)
}

// SubmitAt is Submit for orders read from the intake stream at offset. The
// offset is recorded on the book in the same step as the match.
func (e *Engine) SubmitAt(ctx context.Context, order *orderbookv1.Order, offset int64) (*orderbookv1.SubmitResult, error) {
	result := &orderbookv1.SubmitResult{Order: order}

	if _, ok := e.workers[order.Instrument]; !ok {
		order.Reject(orderbookv1.ErrUnknownInstrument)
		e.count(order)
		return result, orderbookv1.ErrUnknownInstrument
	}

	if err := e.admit(ctx, order); err != nil {
		if orderbookv1.IsRejection(err) {
			order.Reject(err)
			e.count(order)
		}
		return result, err
	}

	var (
		matched  *orderbookv1.SubmitResult
		matchErr error
	)
	err := e.exec(ctx, order.Instrument, func(book *orderbook.Orderbook) {
		started := time.Now()
		matched, matchErr = book.Submit(order)
		book.SetOffset(offset)
		matched = &orderbookv1.SubmitResult{
			Order:    matched.Order.Clone(),
			Accepted: matched.Accepted,
			Trades:   matched.Trades,
		}
		metrics.MatchLatency.WithLabelValues(order.Instrument).Observe(float64(time.Since(started).Microseconds()) / 1000)
	})
	if err != nil {
		return result, errors.NewTracer("queue order").Wrap(err)
	}

	e.count(matched.Order)
	if len(matched.Trades) > 0 {
		metrics.TradesTotal.WithLabelValues(order.Instrument).Add(float64(len(matched.Trades)))
		e.logger.DebugContext(ctx, "order matched",
			logger.Field{Key: "orderID", Value: matched.Order.ID},
			logger.Field{Key: "instrument", Value: matched.Order.Instrument},
			logger.Field{Key: "trades", Value: len(matched.Trades)},
		)
	}

	return matched, matchErr
}

func (e *Engine) admit(ctx context.Context, order *orderbookv1.Order) error {
	eligible, err := e.registry.IsEligibleToTrade(ctx, order.MemberID)
	if err != nil {
		return errors.NewTracer("check member eligibility").Wrap(err)
	}
	if !eligible {
		return orderbookv1.ErrMemberIneligible
	}

	if e.gate == nil {
		return nil
	}
	canTrade, err := e.gate.CanTrade(ctx, order.MemberID)
	if err != nil {
		return errors.NewTracer("check margin gate").Wrap(err)
	}
	if !canTrade {
		return orderbookv1.ErrTradingSuspended
	}
	return nil
}

func (e *Engine) count(order *orderbookv1.Order) {
	metrics.OrdersTotal.WithLabelValues(order.Instrument, string(order.Status)).Inc()
}

// Cancel removes a resting order.
func (e *Engine) Cancel(ctx context.Context, instrument, orderID string) (*orderbookv1.Order, error) {
	return e.CancelAt(ctx, instrument, orderID, -1)
}

// CancelAt is Cancel for requests read from the intake stream at offset.
func (e *Engine) CancelAt(ctx context.Context, instrument, orderID string, offset int64) (*orderbookv1.Order, error) {
	var (
		cancelled *orderbookv1.Order
		cancelErr error
	)
	err := e.exec(ctx, instrument, func(book *orderbook.Orderbook) {
		var order *orderbookv1.Order
		order, cancelErr = book.Cancel(orderID)
		book.SetOffset(offset)
		if order != nil {
			cancelled = order.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if cancelled != nil {
		e.count(cancelled)
	}
	return cancelled, cancelErr
}

// Halt stops an instrument from accepting orders.
func (e *Engine) Halt(ctx context.Context, instrument string) error {
	if err := e.exec(ctx, instrument, func(book *orderbook.Orderbook) { book.Halt() }); err != nil {
		return err
	}
	e.logger.WarnContext(ctx, "instrument halted", logger.Field{Key: "instrument", Value: instrument})
	return nil
}

// Resume lifts a halt.
func (e *Engine) Resume(ctx context.Context, instrument string) error {
	if err := e.exec(ctx, instrument, func(book *orderbook.Orderbook) { book.Resume() }); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "instrument resumed", logger.Field{Key: "instrument", Value: instrument})
	return nil
}

// Snapshot captures the book of one instrument.
func (e *Engine) Snapshot(ctx context.Context, instrument string) (*snapshotv1.Snapshot, error) {
	var snap *snapshotv1.Snapshot
	if err := e.exec(ctx, instrument, func(book *orderbook.Orderbook) { snap = book.Snapshot() }); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces a book with a snapshot.
func (e *Engine) Restore(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	var restoreErr error
	if err := e.exec(ctx, snapshot.Instrument, func(book *orderbook.Orderbook) {
		restoreErr = book.Restore(snapshot)
	}); err != nil {
		return err
	}
	if restoreErr != nil {
		return errors.NewTracer("restore snapshot").Wrap(restoreErr)
	}

	e.logger.InfoContext(ctx, "orderbook restored from snapshot",
		logger.Field{Key: "instrument", Value: snapshot.Instrument},
		logger.Field{Key: "orderOffset", Value: snapshot.OrderOffset},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
	)
	return nil
}

// ExpireAll expires DAY orders on every book.
func (e *Engine) ExpireAll(ctx context.Context, now time.Time) (map[string][]*orderbookv1.Order, error) {
	expired := make(map[string][]*orderbookv1.Order)
	for symbol := range e.workers {
		var orders []*orderbookv1.Order
		if err := e.exec(ctx, symbol, func(book *orderbook.Orderbook) {
			for _, o := range book.Expire(now) {
				orders = append(orders, o.Clone())
			}
		}); err != nil {
			return expired, err
		}
		if len(orders) > 0 {
			expired[symbol] = orders
			for _, o := range orders {
				e.count(o)
			}
		}
	}
	return expired, nil
}

// Depth returns one side of an instrument's book.
func (e *Engine) Depth(ctx context.Context, instrument string, side orderbookv1.Side) ([]orderbookv1.Level, error) {
	var levels []orderbookv1.Level
	err := e.exec(ctx, instrument, func(book *orderbook.Orderbook) { levels = book.Depth(side) })
	return levels, err
}
