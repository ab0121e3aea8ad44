package settlement

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Options configures the Orchestrator.
type Options struct {
	CCPAccount      string
	Deadline        time.Duration
	CallTimeout     time.Duration
	MaxRetries      uint64
	RetryInterval   time.Duration
	WaveConcurrency int
	Clock           func() time.Time
}

// Orchestrator drives delivery-versus-payment settlement of net obligations.
type Orchestrator struct {
	repo      settlementv1.Repository
	warehouse collaboratorv1.Warehouse
	rail      collaboratorv1.PaymentRail
	requeuer  settlementv1.Requeuer
	logger    logger.Interface
	opts      Options

	locks sync.Map
}

// NewOrchestrator creates a settlement orchestrator.
func NewOrchestrator(
	repo settlementv1.Repository,
	warehouse collaboratorv1.Warehouse,
	rail collaboratorv1.PaymentRail,
	requeuer settlementv1.Requeuer,
	logger logger.Interface,
	opts Options,
) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 5 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.WaveConcurrency <= 0 {
		opts.WaveConcurrency = 1
	}
	return &Orchestrator{
		repo:      repo,
		warehouse: warehouse,
		rail:      rail,
		requeuer:  requeuer,
		logger:    logger,
		opts:      opts,
	}
}

// lock serializes every state change of one settlement.
func (o *Orchestrator) lock(id string) func() {
	mu, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Get returns the settlement with the given id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*settlementv1.DvpSettlement, error) {
	return o.repo.Get(ctx, id)
}

// Open creates a pending settlement for obligation. The obligation id is the
// settlement id, so an obligation is settled at most once.
func (o *Orchestrator) Open(ctx context.Context, obligation nettingv1.NetObligation) (*settlementv1.DvpSettlement, error) {
	now := o.opts.Clock()

	payment := settlementv1.PaymentLeg{
		Status:   settlementv1.PaymentPending,
		Amount:   obligation.Amount.Abs(),
		Currency: obligation.Currency,
		From:     obligation.MemberID,
		To:       o.opts.CCPAccount,
	}
	if !obligation.Amount.IsPositive() {
		payment.From, payment.To = o.opts.CCPAccount, obligation.MemberID
	}

	settlement := &settlementv1.DvpSettlement{
		ID:         obligation.ID,
		Obligation: obligation.Clone(),
		Status:     settlementv1.StatusPending,
		Delivery:   settlementv1.DeliveryLeg{Status: settlementv1.DeliveryPending},
		Payment:    payment,
		Deadline:   now.Add(o.opts.Deadline),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.repo.Create(ctx, settlement); err != nil {
		if stderrors.Is(err, settlementv1.ErrAlreadyOpen) {
			return nil, err
		}
		return nil, errors.NewTracer("create settlement " + obligation.ID).Wrap(err)
	}

	o.logger.InfoContext(ctx, "settlement opened",
		logger.Field{Key: "settlementID", Value: settlement.ID},
		logger.Field{Key: "memberID", Value: obligation.MemberID},
		logger.Field{Key: "amount", Value: obligation.Amount.String()},
	)
	return settlement.Clone(), nil
}

// Prepare blocks the delivery leg and escrows the payment leg concurrently.
// Holds taken before a failure are kept on the settlement so Rollback can
// release them.
func (o *Orchestrator) Prepare(ctx context.Context, id string) (*settlementv1.DvpSettlement, error) {
	unlock := o.lock(id)
	defer unlock()

	settlement, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if settlement.IsTerminal() || settlement.Committing {
		return nil, settlementv1.ErrSettlementTerminal
	}
	if settlement.RollingBack() {
		return nil, settlementv1.ErrRollingBack
	}
	if settlement.BothHeld() {
		return settlement, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.blockDelivery(gctx, settlement)
	})
	g.Go(func() error {
		return o.escrowPayment(gctx, settlement)
	})
	prepareErr := g.Wait()

	settlement.Status = settlement.DeriveStatus()
	if err := o.save(ctx, settlement); err != nil {
		return nil, stderrors.Join(prepareErr, err)
	}
	if prepareErr != nil {
		return settlement, errors.NewTracer("prepare settlement " + id).Wrap(prepareErr)
	}
	return settlement, nil
}

// Complete transfers the held receipts and releases the escrowed cash. The
// commit is never rolled back: when a step keeps failing the settlement stays
// in Committing and ErrCommitIncomplete is returned for manual review.
func (o *Orchestrator) Complete(ctx context.Context, id string) (*settlementv1.DvpSettlement, error) {
	unlock := o.lock(id)
	defer unlock()

	settlement, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case settlement.Status == settlementv1.StatusCompleted:
		return settlement, nil
	case settlement.IsTerminal():
		return nil, settlementv1.ErrSettlementTerminal
	case settlement.RollingBack():
		return nil, settlementv1.ErrRollingBack
	case !settlement.Committing && !settlement.BothHeld():
		return nil, settlementv1.ErrLegsNotHeld
	}

	if !settlement.Committing {
		settlement.Committing = true
		if err := o.save(ctx, settlement); err != nil {
			return nil, err
		}
	}

	if err := o.commit(ctx, settlement); err != nil {
		metrics.SettlementsTotal.WithLabelValues("commit_incomplete").Inc()
		tracer := errors.NewTracer("complete settlement " + id).
			Wrap(fmt.Errorf("%w: %v", settlementv1.ErrCommitIncomplete, err)).
			WithSeverity(errors.SeverityCritical)
		o.logger.ErrorContext(ctx, tracer, logger.Field{Key: "settlementID", Value: id})
		if saveErr := o.save(ctx, settlement); saveErr != nil {
			return settlement, stderrors.Join(tracer, saveErr)
		}
		return settlement, tracer
	}

	now := o.opts.Clock()
	settlement.Committing = false
	settlement.Status = settlement.DeriveStatus()
	settlement.CompletedAt = &now
	if err := o.save(ctx, settlement); err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues(string(settlementv1.StatusCompleted)).Inc()
	o.logger.InfoContext(ctx, "settlement completed",
		logger.Field{Key: "settlementID", Value: id},
		logger.Field{Key: "memberID", Value: settlement.Obligation.MemberID},
	)
	return settlement, nil
}

// Rollback releases the holds, reverses the escrow and hands the obligation
// back to netting. Settlements that started committing cannot roll back. The
// settlement stays in StatusRollingBack until every release and the requeue
// succeeded, so a failed step is retried by the next Rollback or Sweep. A
// resumed rollback keeps its first reason.
func (o *Orchestrator) Rollback(ctx context.Context, id, reason string) (*settlementv1.DvpSettlement, error) {
	unlock := o.lock(id)
	defer unlock()

	settlement, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if settlement.IsTerminal() {
		return nil, settlementv1.ErrSettlementTerminal
	}
	if settlement.Committing {
		return nil, settlementv1.ErrSettlementCommitted
	}

	if !settlement.RollingBack() {
		settlement.Status = settlementv1.StatusRollingBack
		settlement.Reason = reason
		if err := o.save(ctx, settlement); err != nil {
			return nil, err
		}
	}

	if err := o.release(ctx, settlement); err != nil {
		metrics.SettlementsTotal.WithLabelValues("release_incomplete").Inc()
		return o.keepRollingBack(ctx, settlement, errors.NewTracer("release settlement "+id).Wrap(err))
	}
	if err := o.requeuer.Requeue(ctx, settlement.Obligation, settlement.Reason); err != nil {
		metrics.SettlementsTotal.WithLabelValues("requeue_incomplete").Inc()
		return o.keepRollingBack(ctx, settlement, errors.NewTracer("requeue obligation "+id).Wrap(err))
	}

	settlement.Delivery.Status = settlementv1.DeliveryFailed
	settlement.Payment.Status = settlementv1.PaymentFailed
	settlement.Status = settlement.DeriveStatus()
	if err := o.save(ctx, settlement); err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues(string(settlementv1.StatusRolledBack)).Inc()
	o.logger.WarnContext(ctx, "settlement rolled back",
		logger.Field{Key: "settlementID", Value: id},
		logger.Field{Key: "memberID", Value: settlement.Obligation.MemberID},
		logger.Field{Key: "reason", Value: settlement.Reason},
	)
	return settlement, nil
}

// keepRollingBack stores the release progress of an unfinished rollback.
func (o *Orchestrator) keepRollingBack(ctx context.Context, settlement *settlementv1.DvpSettlement, cause error) (*settlementv1.DvpSettlement, error) {
	o.logger.ErrorContext(ctx, cause, logger.Field{Key: "settlementID", Value: settlement.ID})
	if err := o.save(ctx, settlement); err != nil {
		return settlement, stderrors.Join(cause, err)
	}
	return settlement, cause
}

// Settle runs one obligation through open, prepare and complete. A prepare
// failure rolls the settlement back; the rolled-back settlement is returned
// without error. An unfinished rollback is resumed.
func (o *Orchestrator) Settle(ctx context.Context, obligation nettingv1.NetObligation) (*settlementv1.DvpSettlement, error) {
	settlement, err := o.Open(ctx, obligation)
	if stderrors.Is(err, settlementv1.ErrAlreadyOpen) {
		settlement, err = o.repo.Get(ctx, obligation.ID)
		if err == nil && settlement.IsTerminal() {
			return settlement, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if settlement.RollingBack() {
		return o.Rollback(context.WithoutCancel(ctx), settlement.ID, settlement.Reason)
	}

	if !settlement.Committing {
		if _, err := o.Prepare(ctx, settlement.ID); err != nil {
			o.logger.WarnContext(ctx, "settlement prepare failed",
				logger.Field{Key: "settlementID", Value: settlement.ID},
				logger.Field{Key: "error", Value: err.Error()},
			)
			return o.Rollback(context.WithoutCancel(ctx), settlement.ID, "prepare failed: "+err.Error())
		}
	}
	return o.Complete(ctx, settlement.ID)
}

func (o *Orchestrator) save(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	settlement.UpdatedAt = o.opts.Clock()
	if err := o.repo.Save(ctx, settlement); err != nil {
		if stderrors.Is(err, settlementv1.ErrVersionConflict) {
			metrics.VersionConflictsTotal.WithLabelValues("settlement").Inc()
		}
		return errors.NewTracer("save settlement " + settlement.ID).Wrap(err)
	}
	return nil
}
