package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type escrow struct {
	amount   decimal.Decimal
	currency string
	from     string
}

// PaymentRail keeps cash balances per account and currency. Accounts listed
// as unlimited may go negative, which is how the CCP's own account is run.
type PaymentRail struct {
	logger    logger.Interface
	unlimited map[string]bool

	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal // account -> currency -> balance
	escrows  map[string]escrow
}

var _ collaboratorv1.PaymentRail = (*PaymentRail)(nil)

// NewPaymentRail creates a rail with no balances.
func NewPaymentRail(logger logger.Interface, unlimited ...string) *PaymentRail {
	r := &PaymentRail{
		logger:    logger,
		unlimited: make(map[string]bool, len(unlimited)),
		balances:  make(map[string]map[string]decimal.Decimal),
		escrows:   make(map[string]escrow),
	}
	for _, account := range unlimited {
		r.unlimited[account] = true
	}
	return r
}

// Fund credits account with amount of currency.
func (r *PaymentRail) Fund(account, currency string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credit(account, currency, amount)
}

// Balance returns the free balance of account in currency.
func (r *PaymentRail) Balance(account, currency string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[account][currency]
}

func (r *PaymentRail) credit(account, currency string, amount decimal.Decimal) {
	byCurrency, ok := r.balances[account]
	if !ok {
		byCurrency = make(map[string]decimal.Decimal)
		r.balances[account] = byCurrency
	}
	byCurrency[currency] = byCurrency[currency].Add(amount)
}

// Escrow moves amount out of fromAccount into a reserved escrow.
func (r *PaymentRail) Escrow(_ context.Context, amount decimal.Decimal, currency, fromAccount string) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: escrow amount %s", collaboratorv1.ErrRejected, amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	balance := r.balances[fromAccount][currency]
	if !r.unlimited[fromAccount] && balance.LessThan(amount) {
		return "", fmt.Errorf("%w: %s has %s %s, needs %s", collaboratorv1.ErrRejected, fromAccount, balance, currency, amount)
	}
	r.credit(fromAccount, currency, amount.Neg())

	token := "escrow-" + ulid.Make().String()
	r.escrows[token] = escrow{amount: amount, currency: currency, from: fromAccount}
	return token, nil
}

// Release pays an escrow out to toAccount.
func (r *PaymentRail) Release(ctx context.Context, token, toAccount string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.escrows[token]
	if !ok {
		return fmt.Errorf("%w: unknown escrow %s", collaboratorv1.ErrRejected, token)
	}
	delete(r.escrows, token)
	r.credit(toAccount, e.currency, e.amount)

	r.logger.InfoContext(ctx, "Escrow released",
		logger.Field{Key: "from", Value: e.from},
		logger.Field{Key: "to", Value: toAccount},
		logger.Field{Key: "amount", Value: e.amount.String()},
		logger.Field{Key: "currency", Value: e.currency},
	)
	return nil
}

// Reverse returns an escrow to its payer. Reversing an unknown token is a
// no-op so a repeated rollback succeeds.
func (r *PaymentRail) Reverse(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.escrows[token]
	if !ok {
		return nil
	}
	delete(r.escrows, token)
	r.credit(e.from, e.currency, e.amount)
	return nil
}
