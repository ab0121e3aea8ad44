package settlement

import (
	"context"
	stderrors "errors"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/cenkalti/backoff/v4"
)

const (
	warehouseCollaborator = "warehouse"
	railCollaborator      = "payment_rail"
)

// call runs fn with a per-call timeout, retrying transient failures with
// exponential backoff. Rejections are returned at once.
func (o *Orchestrator) call(ctx context.Context, collaborator, operation string, fn func(ctx context.Context) error) error {
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()

		err := fn(callCtx)
		if err != nil && stderrors.Is(err, collaboratorv1.ErrRejected) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.opts.RetryInterval
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, o.opts.MaxRetries), ctx))

	result := "ok"
	switch {
	case stderrors.Is(err, collaboratorv1.ErrRejected):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.CollaboratorCalls.WithLabelValues(collaborator, operation, result).Inc()
	return err
}

// blockDelivery locates and holds receipts for every instrument the
// obligation moves. The member's receipts are held when it delivers, the
// CCP's when it receives.
func (o *Orchestrator) blockDelivery(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	if settlement.Delivery.Status != settlementv1.DeliveryPending {
		return nil
	}

	held := make(map[string]bool, len(settlement.Delivery.Holds))
	for _, h := range settlement.Delivery.Holds {
		held[h.Instrument] = true
	}

	obligation := settlement.Obligation
	for _, instrument := range obligation.Instruments() {
		if held[instrument] {
			continue
		}
		qty := obligation.Deliveries[instrument]
		from, to := obligation.MemberID, o.opts.CCPAccount
		if qty.IsNegative() {
			from, to = to, from
		}

		var receipts []string
		err := o.call(ctx, warehouseCollaborator, "locate_receipts", func(ctx context.Context) error {
			var err error
			receipts, err = o.warehouse.LocateReceipts(ctx, from, instrument, qty.Abs())
			return err
		})
		if err != nil {
			return errors.NewTracer("locate " + instrument + " receipts of " + from).Wrap(err)
		}

		for _, receiptID := range receipts {
			var token string
			err := o.call(ctx, warehouseCollaborator, "hold_for_delivery", func(ctx context.Context) error {
				var err error
				token, err = o.warehouse.HoldForDelivery(ctx, receiptID)
				return err
			})
			if err != nil {
				return errors.NewTracer("hold receipt " + receiptID).Wrap(err)
			}
			settlement.Delivery.Holds = append(settlement.Delivery.Holds, settlementv1.Hold{
				Instrument: instrument,
				ReceiptID:  receiptID,
				Token:      token,
				From:       from,
				To:         to,
			})
		}
	}

	settlement.Delivery.Status = settlementv1.DeliveryBlocked
	return nil
}

func (o *Orchestrator) escrowPayment(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	payment := &settlement.Payment
	if payment.Status != settlementv1.PaymentPending {
		return nil
	}
	if payment.Amount.IsZero() {
		payment.Status = settlementv1.PaymentEscrowed
		return nil
	}

	var token string
	err := o.call(ctx, railCollaborator, "escrow", func(ctx context.Context) error {
		var err error
		token, err = o.rail.Escrow(ctx, payment.Amount, payment.Currency, payment.From)
		return err
	})
	if err != nil {
		return errors.NewTracer("escrow payment of " + payment.From).Wrap(err)
	}
	payment.Token = token
	payment.Status = settlementv1.PaymentEscrowed
	return nil
}

// commit transfers every outstanding receipt, then releases the cash.
// Progress is recorded on the settlement so a resumed commit skips finished
// steps.
func (o *Orchestrator) commit(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	for i := range settlement.Delivery.Holds {
		hold := &settlement.Delivery.Holds[i]
		if hold.Transferred {
			continue
		}
		err := o.call(ctx, warehouseCollaborator, "transfer_ownership", func(ctx context.Context) error {
			return o.warehouse.TransferOwnership(ctx, hold.ReceiptID, hold.To)
		})
		if err != nil {
			return errors.NewTracer("transfer receipt " + hold.ReceiptID).Wrap(err)
		}
		hold.Transferred = true
	}
	settlement.Delivery.Status = settlementv1.DeliveryTransferred

	payment := &settlement.Payment
	if payment.Status != settlementv1.PaymentReleased {
		if payment.Token != "" {
			err := o.call(ctx, railCollaborator, "release", func(ctx context.Context) error {
				return o.rail.Release(ctx, payment.Token, payment.To)
			})
			if err != nil {
				return errors.NewTracer("release payment to " + payment.To).Wrap(err)
			}
		}
		payment.Status = settlementv1.PaymentReleased
	}
	return nil
}

// release undoes every hold and the escrow. Steps that succeeded are marked
// on the settlement and skipped on a retry. Failures are logged and returned
// together after every step was attempted.
func (o *Orchestrator) release(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	var errs []error

	for i := range settlement.Delivery.Holds {
		hold := &settlement.Delivery.Holds[i]
		if hold.Released {
			continue
		}
		err := o.call(ctx, warehouseCollaborator, "release_hold", func(ctx context.Context) error {
			return o.warehouse.ReleaseHold(ctx, hold.Token)
		})
		if err != nil {
			errs = append(errs, errors.NewTracer("release hold "+hold.Token).Wrap(err))
			continue
		}
		hold.Released = true
	}

	payment := &settlement.Payment
	if payment.Token != "" && payment.Status == settlementv1.PaymentEscrowed && !payment.Reversed {
		err := o.call(ctx, railCollaborator, "reverse", func(ctx context.Context) error {
			return o.rail.Reverse(ctx, payment.Token)
		})
		if err != nil {
			errs = append(errs, errors.NewTracer("reverse escrow "+payment.Token).Wrap(err))
		} else {
			payment.Reversed = true
		}
	}
	return stderrors.Join(errs...)
}
