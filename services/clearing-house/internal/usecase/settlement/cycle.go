package settlement

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"golang.org/x/sync/errgroup"
)

// SettleCycle settles every obligation of a closed cycle in two waves. The
// first wave takes everything members owe the CCP, the second everything the
// CCP owes members. An obligation that receives metal waits for the second
// wave even when the member also pays, since the CCP only holds the receipts
// once the first wave delivered them. Obligations of the CCP account and
// obligations that move nothing are skipped. Results follow the cycle's
// obligation order.
func (o *Orchestrator) SettleCycle(ctx context.Context, cycle *nettingv1.NettingCycle) ([]*settlementv1.DvpSettlement, error) {
	if cycle.Status != nettingv1.CycleClosed {
		return nil, nettingv1.ErrCycleNotClosed
	}

	var incoming, outgoing []int
	for i, obligation := range cycle.Obligations {
		if obligation.MemberID == o.opts.CCPAccount || obligation.IsZero() {
			continue
		}
		if obligation.MemberPaysOrDelivers() && !obligation.ReceivesDelivery() {
			incoming = append(incoming, i)
		} else {
			outgoing = append(outgoing, i)
		}
	}

	o.logger.InfoContext(ctx, "settling cycle",
		logger.Field{Key: "settlementDate", Value: util.DayKey(cycle.SettlementDate)},
		logger.Field{Key: "incoming", Value: len(incoming)},
		logger.Field{Key: "outgoing", Value: len(outgoing)},
	)

	results := make([]*settlementv1.DvpSettlement, len(cycle.Obligations))
	errIn := o.wave(ctx, cycle.Obligations, incoming, results)
	errOut := o.wave(ctx, cycle.Obligations, outgoing, results)

	settled := make([]*settlementv1.DvpSettlement, 0, len(incoming)+len(outgoing))
	for _, s := range results {
		if s != nil {
			settled = append(settled, s)
		}
	}
	return settled, stderrors.Join(errIn, errOut)
}

func (o *Orchestrator) wave(ctx context.Context, obligations []nettingv1.NetObligation, indexes []int, results []*settlementv1.DvpSettlement) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(o.opts.WaveConcurrency)

	for _, i := range indexes {
		g.Go(func() error {
			settlement, err := o.Settle(ctx, obligations[i])
			mu.Lock()
			defer mu.Unlock()
			results[i] = settlement
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}

// Sweep rolls back every open settlement past its deadline and resumes
// settlements left in Committing or in an unfinished rollback. It returns the settlements it touched.
func (o *Orchestrator) Sweep(ctx context.Context, now time.Time) ([]*settlementv1.DvpSettlement, error) {
	open, err := o.repo.ListOpen(ctx)
	if err != nil {
		return nil, errors.NewTracer("list open settlements").Wrap(err)
	}

	var (
		touched []*settlementv1.DvpSettlement
		errs    []error
	)
	for _, s := range open {
		var (
			result *settlementv1.DvpSettlement
			err    error
		)
		switch {
		case s.IsTerminal():
			continue
		case s.RollingBack():
			result, err = o.Rollback(ctx, s.ID, s.Reason)
		case s.Committing:
			result, err = o.Complete(ctx, s.ID)
		case now.After(s.Deadline):
			result, err = o.Rollback(ctx, s.ID, "timeout")
		default:
			continue
		}
		if stderrors.Is(err, settlementv1.ErrSettlementTerminal) || stderrors.Is(err, settlementv1.ErrSettlementCommitted) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		if result != nil {
			touched = append(touched, result)
		}
	}
	return touched, stderrors.Join(errs...)
}
