package pipeline

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/netting"
)

var errCycleIncomplete = stderrors.New("settlement of cycle incomplete")

// SnapshotAll stores the book of every instrument whose intake offset moved
// since its last snapshot. Books fed only through Submit carry offset -1 and
// are always stored.
func (p *Pipeline) SnapshotAll(ctx context.Context) error {
	var errs []error
	for _, instrument := range p.deps.Matching.Instruments() {
		snap, err := p.deps.Matching.Snapshot(ctx, instrument)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		p.mu.Lock()
		last, ok := p.saved[instrument]
		p.mu.Unlock()
		if ok && snap.OrderOffset >= 0 && snap.OrderOffset == last {
			continue
		}

		if err := p.deps.Snapshots.Save(ctx, snap); err != nil {
			errs = append(errs, errors.NewTracer("store snapshot of "+instrument).Wrap(err))
			continue
		}
		p.mu.Lock()
		p.saved[instrument] = snap.OrderOffset
		p.mu.Unlock()

		p.logger.DebugContext(ctx, "Snapshot stored",
			logger.Field{Key: "instrument", Value: instrument},
			logger.Field{Key: "offset", Value: snap.OrderOffset},
			logger.Field{Key: "orders", Value: len(snap.Orders)},
		)
	}
	return stderrors.Join(errs...)
}

// Revalue marks every margin account to market and escalates calls that are
// past due.
func (p *Pipeline) Revalue(ctx context.Context, now time.Time) error {
	revalueErr := p.deps.Margin.RevalueAll(ctx)

	defaulted, err := p.deps.Margin.CheckOverdue(ctx, now)
	if len(defaulted) > 0 {
		p.logger.WarnContext(ctx, "Margin calls defaulted", logger.Field{Key: "calls", Value: len(defaulted)})
	}
	return stderrors.Join(revalueErr, err)
}

// SettleDue closes and settles every cycle whose cutoff has passed at now,
// oldest first, plus restored cycles that closed without settling.
func (p *Pipeline) SettleDue(ctx context.Context, now time.Time) error {
	due := make(map[string]time.Time)

	p.mu.Lock()
	for key, date := range p.pending {
		due[key] = date
	}
	p.mu.Unlock()

	for _, date := range p.deps.Netting.OpenDates() {
		if !now.Before(date.Add(p.opts.Cutoff)) {
			due[util.DayKey(date)] = date
		}
	}

	dates := make([]time.Time, 0, len(due))
	for _, date := range due {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var errs []error
	for _, date := range dates {
		if _, err := p.CloseAndSettle(ctx, date); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// CloseAndSettle closes the cycle of date, settles its obligations and marks
// it settled. A settlement only counts as rolled back once its obligation was
// requeued, so the cycle is marked settled once every obligation completed,
// rolled back or started committing. Otherwise, including while a rollback
// is unfinished, the cycle is retried on the next SettleDue. A halted cycle
// stays halted for review.
func (p *Pipeline) CloseAndSettle(ctx context.Context, date time.Time) ([]*settlementv1.DvpSettlement, error) {
	key := util.DayKey(date)

	cycle, err := p.deps.Netting.CloseCycle(ctx, date)
	switch {
	case stderrors.Is(err, netting.ErrCloseInProgress):
		return nil, nil
	case stderrors.Is(err, nettingv1.ErrNettingImbalance):
		p.forget(key)
		return nil, err
	case err != nil:
		return nil, err
	}
	if cycle.Status == nettingv1.CycleSettled {
		p.forget(key)
		return nil, nil
	}

	settled, settleErr := p.deps.Settlement.SettleCycle(ctx, cycle)
	if ctx.Err() != nil {
		return settled, stderrors.Join(settleErr, ctx.Err())
	}

	completed, rolledBack, committing := 0, 0, 0
	for _, s := range settled {
		switch {
		case s.Status == settlementv1.StatusCompleted:
			completed++
		case s.Status == settlementv1.StatusRolledBack:
			rolledBack++
		case s.Committing:
			committing++
		}
	}
	if completed+rolledBack+committing < p.settleable(cycle) {
		p.mu.Lock()
		p.pending[key] = cycle.SettlementDate
		p.mu.Unlock()
		return settled, stderrors.Join(settleErr, errors.NewTracer("cycle "+key+" left unsettled obligations").Wrap(errCycleIncomplete))
	}

	if err := p.deps.Netting.MarkSettled(ctx, date); err != nil {
		return settled, stderrors.Join(settleErr, err)
	}
	p.forget(key)

	p.logger.InfoContext(ctx, "Cycle settled",
		logger.Field{Key: "settlementDate", Value: key},
		logger.Field{Key: "completed", Value: completed},
		logger.Field{Key: "rolledBack", Value: rolledBack},
	)
	return settled, settleErr
}

// settleable counts the obligations SettleCycle is expected to settle.
func (p *Pipeline) settleable(cycle *nettingv1.NettingCycle) int {
	n := 0
	for _, o := range cycle.Obligations {
		if o.MemberID != p.opts.CCPAccount && !o.IsZero() {
			n++
		}
	}
	return n
}

func (p *Pipeline) forget(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
}
