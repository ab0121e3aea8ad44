package waterfallv1

import (
	"context"
	"errors"
	"time"

	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/shopspring/decimal"
)

var (
	ErrWaterfallInvariant = errors.New("waterfall allocation broke its bounds")
	ErrCaseNotFound       = errors.New("default case not found")
	ErrInvalidTransition  = errors.New("invalid default case transition")
	ErrLossNotCovered     = errors.New("loss neither covered nor written off")
	ErrOpenPositions      = errors.New("defaulter still has open positions")
	ErrVersionConflict    = errors.New("record changed since it was read")
	ErrCaseHalted         = errors.New("default case halted for manual review")
	ErrAlreadyInDefault   = errors.New("member already has an open default case")
	ErrNoOpenPositions    = errors.New("defaulter has no open positions to auction")
	ErrInvalidLoss        = errors.New("declared loss must not be negative")
	ErrInvalidAmount      = errors.New("contribution must be positive")
)

// CaseStatus is the state of a default case.
type CaseStatus string

const (
	CaseDeclared         CaseStatus = "declared"
	CaseLossAllocation   CaseStatus = "loss_allocation"
	CasePortfolioAuction CaseStatus = "portfolio_auction"
	CaseClosed           CaseStatus = "closed"
)

// GuaranteeFund holds the mutualized default resources.
type GuaranteeFund struct {
	SkinInTheGame  decimal.Decimal            `json:"skinInTheGame"`
	Contributions  map[string]decimal.Decimal `json:"contributions"`
	CapitalReserve decimal.Decimal            `json:"capitalReserve"`
	// Allocations holds every allocation debited from the fund by its id.
	Allocations map[string]Allocation `json:"allocations"`
	Version     int64                 `json:"version"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// Contribution returns member's contribution.
func (f *GuaranteeFund) Contribution(memberID string) decimal.Decimal {
	return f.Contributions[memberID]
}

// Survivors returns every contribution except the defaulter's.
func (f *GuaranteeFund) Survivors(defaulter string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(f.Contributions))
	for member, amount := range f.Contributions {
		if member != defaulter {
			out[member] = amount
		}
	}
	return out
}

// TotalContributions sums all member contributions.
func (f *GuaranteeFund) TotalContributions() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range f.Contributions {
		total = total.Add(amount)
	}
	return total
}

// Debit reduces the fund by what the allocation consumed from layers 2 to 5.
func (f *GuaranteeFund) Debit(defaulter string, apps []LayerApplication) {
	for _, app := range apps {
		switch app.Kind {
		case KindDefaulterContribution:
			f.Contributions[defaulter] = f.Contributions[defaulter].Sub(app.Utilized)
		case KindSkinInTheGame:
			f.SkinInTheGame = f.SkinInTheGame.Sub(app.Utilized)
		case KindMutualizedFund:
			for member, charge := range app.Charges {
				f.Contributions[member] = f.Contributions[member].Sub(charge)
			}
		case KindCapitalReserve:
			f.CapitalReserve = f.CapitalReserve.Sub(app.Utilized)
		}
	}
}

// Applied returns the allocation recorded under id.
func (f *GuaranteeFund) Applied(id string) (Allocation, bool) {
	alloc, ok := f.Allocations[id]
	return alloc, ok
}

// Apply debits alloc and records it under id. An id already recorded is
// not debited again.
func (f *GuaranteeFund) Apply(id, defaulter string, alloc Allocation) bool {
	if _, ok := f.Allocations[id]; ok {
		return false
	}
	if f.Contributions == nil {
		f.Contributions = make(map[string]decimal.Decimal)
	}
	if f.Allocations == nil {
		f.Allocations = make(map[string]Allocation)
	}
	f.Debit(defaulter, alloc.Applications)
	f.Allocations[id] = alloc
	return true
}

// Clone returns a deep copy.
func (f *GuaranteeFund) Clone() *GuaranteeFund {
	c := *f
	c.Contributions = make(map[string]decimal.Decimal, len(f.Contributions))
	for k, v := range f.Contributions {
		c.Contributions[k] = v
	}
	c.Allocations = make(map[string]Allocation, len(f.Allocations))
	for k, v := range f.Allocations {
		v.Applications = append([]LayerApplication(nil), v.Applications...)
		c.Allocations[k] = v
	}
	return &c
}

// AuditEntry is one step of a default case's history.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// Auction tracks the transfer of a defaulter's portfolio.
type Auction struct {
	OpenedAt    time.Time  `json:"openedAt"`
	Winner      string     `json:"winner,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// DefaultCase is the handling of one member default.
type DefaultCase struct {
	ID            string             `json:"id"`
	MemberID      string             `json:"memberID"`
	Reason        string             `json:"reason"`
	Currency      string             `json:"currency"`
	DeclaredLoss  decimal.Decimal    `json:"declaredLoss"`
	MarginSeized  bool               `json:"marginSeized"`
	SeizedMargin  decimal.Decimal    `json:"seizedMargin"`
	AllocationID  string             `json:"allocationID,omitempty"`
	Layers        []LayerApplication `json:"layers"`
	Recovered     decimal.Decimal    `json:"recovered"`
	Unrecovered   decimal.Decimal    `json:"unrecovered"`
	Status        CaseStatus         `json:"status"`
	Halted        bool               `json:"halted"`
	WrittenOff    bool               `json:"writtenOff"`
	WriteOffNote  string             `json:"writeOffNote,omitempty"`
	MarginSurplus decimal.Decimal    `json:"marginSurplus"`
	Auction       *Auction           `json:"auction,omitempty"`
	Audit         []AuditEntry       `json:"audit"`
	Version       int64              `json:"version"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	ClosedAt      *time.Time         `json:"closedAt,omitempty"`
}

// Record appends an audit entry.
func (c *DefaultCase) Record(at time.Time, action, detail string) {
	c.Audit = append(c.Audit, AuditEntry{At: at, Action: action, Detail: detail})
	c.UpdatedAt = at
}

// Covered reports whether the loss is recovered in full or written off.
func (c *DefaultCase) Covered() bool {
	return c.WrittenOff || !c.Unrecovered.IsPositive()
}

// Clone returns a deep copy.
func (c *DefaultCase) Clone() *DefaultCase {
	out := *c
	out.Layers = append([]LayerApplication(nil), c.Layers...)
	out.Audit = append([]AuditEntry(nil), c.Audit...)
	if c.Auction != nil {
		a := *c.Auction
		out.Auction = &a
	}
	return &out
}

// CaseRepository persists default cases with optimistic versioning.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=waterfallv1_mock
type CaseRepository interface {
	Create(ctx context.Context, c *DefaultCase) error
	Save(ctx context.Context, c *DefaultCase) error
	Get(ctx context.Context, id string) (*DefaultCase, error)
	OpenByMember(ctx context.Context, memberID string) (*DefaultCase, error)
}

// FundRepository persists the guarantee fund with optimistic versioning.
type FundRepository interface {
	Get(ctx context.Context) (*GuaranteeFund, error)
	Save(ctx context.Context, fund *GuaranteeFund) error
}

// MarginSeizer is the part of the margin engine the default manager drives.
type MarginSeizer interface {
	MarkDefaulted(ctx context.Context, memberID string) error
	Seize(ctx context.Context, memberID string) (decimal.Decimal, error)
	OutstandingVariation(ctx context.Context, memberID string) (decimal.Decimal, error)
}

// PositionManager is the part of the netting engine used in an auction.
type PositionManager interface {
	OpenPositions(memberID string) []nettingv1.Position
	TransferPositions(ctx context.Context, from, to string) error
}
