package orderbookv1

import "errors"

var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("limit price must be positive")
	ErrInvalidSide          = errors.New("side must be buy or sell")
	ErrInvalidOrderType     = errors.New("order type must be limit or market")
	ErrInvalidTimeInForce   = errors.New("unknown time in force")
	ErrInstrumentHalted     = errors.New("instrument is halted")
	ErrDuplicateOrder       = errors.New("order id already used on book")
	ErrOrderNotFound        = errors.New("order not found")
	ErrSelfMatch            = errors.New("order would match against the same member")
	ErrFillOrKillUnfillable = errors.New("fill-or-kill order cannot be filled completely")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrMemberIneligible     = errors.New("member is not eligible to trade")
	ErrTradingSuspended     = errors.New("member trading is suspended by margin")
	ErrWrongInstrument      = errors.New("order instrument does not match book")
	ErrEngineStopped        = errors.New("matching engine is not running")
)

// IsRejection reports whether err is a synchronous order rejection.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity, ErrInvalidPrice, ErrInvalidSide, ErrInvalidOrderType, ErrInvalidTimeInForce,
		ErrInstrumentHalted, ErrDuplicateOrder, ErrSelfMatch, ErrFillOrKillUnfillable,
		ErrUnknownInstrument, ErrMemberIneligible, ErrTradingSuspended, ErrWrongInstrument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
