package waterfall

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Options configures the Manager.
type Options struct {
	Currency          string
	MaxVersionRetries uint64
	Clock             func() time.Time
}

// Manager runs default cases through the guarantee fund waterfall.
type Manager struct {
	cases     waterfallv1.CaseRepository
	fund      waterfallv1.FundRepository
	margin    waterfallv1.MarginSeizer
	positions waterfallv1.PositionManager
	logger    logger.Interface
	opts      Options

	locks sync.Map
}

var _ marginv1.DefaultHandler = (*Manager)(nil)

// NewManager creates a default manager.
func NewManager(
	cases waterfallv1.CaseRepository,
	fund waterfallv1.FundRepository,
	margin waterfallv1.MarginSeizer,
	positions waterfallv1.PositionManager,
	logger logger.Interface,
	opts Options,
) *Manager {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &Manager{
		cases:     cases,
		fund:      fund,
		margin:    margin,
		positions: positions,
		logger:    logger,
		opts:      opts,
	}
}

func (m *Manager) lock(key string) func() {
	mu, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	l := mu.(*sync.Mutex)
	l.Lock()
	return l.Unlock
}

// Get returns the default case with the given id.
func (m *Manager) Get(ctx context.Context, id string) (*waterfallv1.DefaultCase, error) {
	return m.cases.Get(ctx, id)
}

// Declare opens a default case and marks the member defaulted, which stops
// the margin gate from admitting its orders.
func (m *Manager) Declare(ctx context.Context, memberID string, loss decimal.Decimal, reason string) (*waterfallv1.DefaultCase, error) {
	if loss.IsNegative() {
		return nil, waterfallv1.ErrInvalidLoss
	}

	unlock := m.lock("member:" + memberID)
	defer unlock()

	existing, err := m.cases.OpenByMember(ctx, memberID)
	if err == nil {
		return existing, waterfallv1.ErrAlreadyInDefault
	}
	if !stderrors.Is(err, waterfallv1.ErrCaseNotFound) {
		return nil, errors.NewTracer("find open default case").Wrap(err)
	}

	if err := m.margin.MarkDefaulted(ctx, memberID); err != nil {
		return nil, errors.NewTracer("mark member defaulted").Wrap(err)
	}

	now := m.opts.Clock()
	c := &waterfallv1.DefaultCase{
		ID:           ulid.Make().String(),
		MemberID:     memberID,
		Reason:       reason,
		Currency:     m.opts.Currency,
		DeclaredLoss: loss,
		Recovered:    decimal.Zero,
		Unrecovered:  loss,
		Status:       waterfallv1.CaseDeclared,
		CreatedAt:    now,
	}
	c.Record(now, "declared", reason)
	if err := m.cases.Create(ctx, c); err != nil {
		return nil, errors.NewTracer("create default case").Wrap(err)
	}

	metrics.DefaultsTotal.Inc()
	m.logger.WarnContext(ctx, "member default declared",
		logger.Field{Key: "caseID", Value: c.ID},
		logger.Field{Key: "memberID", Value: memberID},
		logger.Field{Key: "loss", Value: loss.String()},
		logger.Field{Key: "reason", Value: reason},
	)
	return c.Clone(), nil
}

// load fetches a case for a transition and refuses halted cases.
func (m *Manager) load(ctx context.Context, id string, allowed ...waterfallv1.CaseStatus) (*waterfallv1.DefaultCase, error) {
	c, err := m.cases.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Halted {
		return nil, waterfallv1.ErrCaseHalted
	}
	for _, status := range allowed {
		if c.Status == status {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: case %s is %s", waterfallv1.ErrInvalidTransition, id, c.Status)
}

func (m *Manager) save(ctx context.Context, c *waterfallv1.DefaultCase) error {
	if err := m.cases.Save(ctx, c); err != nil {
		if stderrors.Is(err, waterfallv1.ErrVersionConflict) {
			metrics.VersionConflictsTotal.WithLabelValues("default_case").Inc()
		}
		return errors.NewTracer("save default case " + c.ID).Wrap(err)
	}
	return nil
}

// AllocateLoss seizes the defaulter's margin and runs the declared loss
// through the waterfall. A broken allocation halts the case. The case
// carries its allocation id before the fund is touched, so a retry after a
// failed save reuses the debit already made.
func (m *Manager) AllocateLoss(ctx context.Context, id string) (*waterfallv1.DefaultCase, error) {
	unlock := m.lock(id)
	defer unlock()

	c, err := m.load(ctx, id, waterfallv1.CaseDeclared)
	if err != nil {
		return nil, err
	}

	if c.AllocationID == "" || !c.MarginSeized {
		if c.AllocationID == "" {
			c.AllocationID = ulid.Make().String()
		}
		if !c.MarginSeized {
			seized, err := m.margin.Seize(ctx, c.MemberID)
			if err != nil {
				return nil, errors.NewTracer("seize margin of " + c.MemberID).Wrap(err)
			}
			c.MarginSeized = true
			c.SeizedMargin = seized
			c.Record(m.opts.Clock(), "margin_seized", seized.String())
		}
		if err := m.save(ctx, c); err != nil {
			return nil, err
		}
	}

	alloc, err := m.allocate(ctx, c)
	now := m.opts.Clock()
	if stderrors.Is(err, waterfallv1.ErrWaterfallInvariant) {
		c.Halted = true
		c.Layers = alloc.Applications
		c.Record(now, "halted", err.Error())
		tracer := errors.NewTracer("allocate loss of case " + id).Wrap(err).WithSeverity(errors.SeverityCritical)
		m.logger.ErrorContext(ctx, tracer, logger.Field{Key: "caseID", Value: id})
		if saveErr := m.save(ctx, c); saveErr != nil {
			return nil, stderrors.Join(tracer, saveErr)
		}
		return c, tracer
	}
	if err != nil {
		return nil, err
	}

	c.Layers = alloc.Applications
	c.Recovered = alloc.Recovered
	c.Unrecovered = alloc.Unrecovered
	c.Status = waterfallv1.CaseLossAllocation
	for _, app := range alloc.Applications {
		if app.Utilized.IsPositive() {
			c.Record(now, "layer_applied", fmt.Sprintf("%d %s %s of %s", app.Order, app.Kind, app.Utilized, app.Available))
		}
	}
	if err := m.save(ctx, c); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "default loss allocated",
		logger.Field{Key: "caseID", Value: id},
		logger.Field{Key: "recovered", Value: c.Recovered.String()},
		logger.Field{Key: "unrecovered", Value: c.Unrecovered.String()},
	)
	if c.Unrecovered.IsPositive() {
		metrics.UnrecoveredLoss.WithLabelValues(c.Currency).Add(c.Unrecovered.InexactFloat64())
		m.logger.ErrorContext(ctx, errors.NewTracer("unrecovered default loss").WithSeverity(errors.SeverityHigh),
			logger.Field{Key: "caseID", Value: id},
			logger.Field{Key: "memberID", Value: c.MemberID},
			logger.Field{Key: "amount", Value: c.Unrecovered.String()},
			logger.Field{Key: "currency", Value: c.Currency},
		)
	}
	return c, nil
}

// allocate builds the waterfall from the current fund, applies the loss and
// debits the fund, retrying when the fund changed underneath. An allocation
// the fund already recorded for the case is returned as is.
func (m *Manager) allocate(ctx context.Context, c *waterfallv1.DefaultCase) (waterfallv1.Allocation, error) {
	var alloc waterfallv1.Allocation

	op := func() error {
		fund, err := m.fund.Get(ctx)
		if err != nil {
			return backoff.Permanent(errors.NewTracer("get guarantee fund").Wrap(err))
		}
		if applied, ok := fund.Applied(c.AllocationID); ok {
			alloc = applied
			return nil
		}

		w := waterfallv1.NewWaterfall(
			waterfallv1.NewDefaulterMargin(c.SeizedMargin),
			waterfallv1.NewDefaulterContribution(fund.Contribution(c.MemberID)),
			waterfallv1.NewSkinInTheGame(fund.SkinInTheGame),
			waterfallv1.NewMutualizedFund(fund.Survivors(c.MemberID)),
			waterfallv1.NewCapitalReserve(fund.CapitalReserve),
		)
		alloc, err = w.Allocate(c.DeclaredLoss)
		if err != nil {
			return backoff.Permanent(err)
		}

		fund.Apply(c.AllocationID, c.MemberID, alloc)
		fund.UpdatedAt = m.opts.Clock()
		if err := m.fund.Save(ctx, fund); err != nil {
			if stderrors.Is(err, waterfallv1.ErrVersionConflict) {
				metrics.VersionConflictsTotal.WithLabelValues("guarantee_fund").Inc()
				return err
			}
			return backoff.Permanent(errors.NewTracer("save guarantee fund").Wrap(err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.opts.MaxVersionRetries), ctx)
	err := backoff.Retry(op, policy)
	return alloc, err
}

// Contribute adds amount to member's guarantee fund contribution.
func (m *Manager) Contribute(ctx context.Context, memberID string, amount decimal.Decimal) (*waterfallv1.GuaranteeFund, error) {
	if !amount.IsPositive() {
		return nil, waterfallv1.ErrInvalidAmount
	}

	var saved *waterfallv1.GuaranteeFund
	op := func() error {
		fund, err := m.fund.Get(ctx)
		if err != nil {
			return backoff.Permanent(errors.NewTracer("get guarantee fund").Wrap(err))
		}
		if fund.Contributions == nil {
			fund.Contributions = make(map[string]decimal.Decimal)
		}
		fund.Contributions[memberID] = fund.Contributions[memberID].Add(amount)
		fund.UpdatedAt = m.opts.Clock()
		if err := m.fund.Save(ctx, fund); err != nil {
			if stderrors.Is(err, waterfallv1.ErrVersionConflict) {
				metrics.VersionConflictsTotal.WithLabelValues("guarantee_fund").Inc()
				return err
			}
			return backoff.Permanent(errors.NewTracer("save guarantee fund").Wrap(err))
		}
		saved = fund
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.opts.MaxVersionRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return saved, nil
}

// OpenAuction puts the defaulter's remaining positions up for auction.
func (m *Manager) OpenAuction(ctx context.Context, id string) (*waterfallv1.DefaultCase, error) {
	unlock := m.lock(id)
	defer unlock()

	c, err := m.load(ctx, id, waterfallv1.CaseLossAllocation)
	if err != nil {
		return nil, err
	}
	if len(m.positions.OpenPositions(c.MemberID)) == 0 {
		return nil, waterfallv1.ErrNoOpenPositions
	}

	now := m.opts.Clock()
	c.Auction = &waterfallv1.Auction{OpenedAt: now}
	c.Status = waterfallv1.CasePortfolioAuction
	c.Record(now, "auction_opened", "")
	if err := m.save(ctx, c); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "portfolio auction opened",
		logger.Field{Key: "caseID", Value: id},
		logger.Field{Key: "memberID", Value: c.MemberID},
	)
	return c, nil
}

// CompleteAuction hands the defaulter's positions to the winning member.
func (m *Manager) CompleteAuction(ctx context.Context, id, winner string) (*waterfallv1.DefaultCase, error) {
	unlock := m.lock(id)
	defer unlock()

	c, err := m.load(ctx, id, waterfallv1.CasePortfolioAuction)
	if err != nil {
		return nil, err
	}
	if winner == "" || winner == c.MemberID || c.Auction.CompletedAt != nil {
		return nil, fmt.Errorf("%w: auction of case %s cannot complete with %q", waterfallv1.ErrInvalidTransition, id, winner)
	}

	if err := m.positions.TransferPositions(ctx, c.MemberID, winner); err != nil {
		return nil, errors.NewTracer("transfer positions to " + winner).Wrap(err)
	}

	now := m.opts.Clock()
	c.Auction.Winner = winner
	c.Auction.CompletedAt = &now
	c.Record(now, "auction_completed", winner)
	if err := m.save(ctx, c); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "portfolio auction completed",
		logger.Field{Key: "caseID", Value: id},
		logger.Field{Key: "winner", Value: winner},
	)
	return c, nil
}

// WriteOff accepts the unrecovered part of the loss so the case can close.
func (m *Manager) WriteOff(ctx context.Context, id, note string) (*waterfallv1.DefaultCase, error) {
	unlock := m.lock(id)
	defer unlock()

	c, err := m.load(ctx, id, waterfallv1.CaseLossAllocation, waterfallv1.CasePortfolioAuction)
	if err != nil {
		return nil, err
	}
	if !c.Unrecovered.IsPositive() || c.WrittenOff {
		return nil, fmt.Errorf("%w: case %s has nothing to write off", waterfallv1.ErrInvalidTransition, id)
	}

	now := m.opts.Clock()
	c.WrittenOff = true
	c.WriteOffNote = note
	c.Record(now, "written_off", note)
	if err := m.save(ctx, c); err != nil {
		return nil, err
	}

	m.logger.WarnContext(ctx, "default loss written off",
		logger.Field{Key: "caseID", Value: id},
		logger.Field{Key: "amount", Value: c.Unrecovered.String()},
		logger.Field{Key: "note", Value: note},
	)
	return c, nil
}

// Close ends a case once the defaulter holds no positions and the loss is
// covered or written off.
func (m *Manager) Close(ctx context.Context, id string) (*waterfallv1.DefaultCase, error) {
	unlock := m.lock(id)
	defer unlock()

	c, err := m.load(ctx, id, waterfallv1.CaseLossAllocation, waterfallv1.CasePortfolioAuction)
	if err != nil {
		return nil, err
	}
	if len(m.positions.OpenPositions(c.MemberID)) > 0 {
		return nil, waterfallv1.ErrOpenPositions
	}
	if !c.Covered() {
		return nil, waterfallv1.ErrLossNotCovered
	}

	now := m.opts.Clock()
	c.MarginSurplus = marginSurplus(c)
	if c.MarginSurplus.IsPositive() {
		c.Record(now, "margin_surplus", c.MarginSurplus.String())
	}
	c.Status = waterfallv1.CaseClosed
	c.ClosedAt = &now
	c.Record(now, "closed", "")
	if err := m.save(ctx, c); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "default case closed",
		logger.Field{Key: "caseID", Value: id},
		logger.Field{Key: "memberID", Value: c.MemberID},
		logger.Field{Key: "marginSurplus", Value: c.MarginSurplus.String()},
	)
	return c, nil
}

// marginSurplus is the seized margin the first layer did not absorb.
func marginSurplus(c *waterfallv1.DefaultCase) decimal.Decimal {
	used := decimal.Zero
	for _, app := range c.Layers {
		if app.Kind == waterfallv1.KindDefaulterMargin {
			used = used.Add(app.Utilized)
		}
	}
	return decimal.Max(c.SeizedMargin.Sub(used), decimal.Zero)
}

// HandleMarginDefault declares a default for an uncured margin call and
// allocates the loss through the waterfall. The loss is the variation
// margin the member failed to pay, before any collateral is applied; the
// initial margin part of the call is cover rather than loss. Members
// already in default are left to their open case.
func (m *Manager) HandleMarginDefault(ctx context.Context, call marginv1.MarginCall) error {
	loss, err := m.margin.OutstandingVariation(ctx, call.MemberID)
	if err != nil {
		return errors.NewTracer("read outstanding variation margin of " + call.MemberID).Wrap(err)
	}
	c, err := m.Declare(ctx, call.MemberID, loss, "margin call "+call.ID+" not met")
	if stderrors.Is(err, waterfallv1.ErrAlreadyInDefault) {
		m.logger.InfoContext(ctx, "member already in default",
			logger.Field{Key: "memberID", Value: call.MemberID},
			logger.Field{Key: "caseID", Value: c.ID},
		)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = m.AllocateLoss(ctx, c.ID)
	return err
}
