package orderbookv1

import "github.com/shopspring/decimal"

// Limit represents a price level holding a FIFO queue of orders.
type Limit struct {
	Price       decimal.Decimal `json:"price"`
	Orders      []*Order        `json:"orders"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
}

// NewLimit creates a new Limit with the specified price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		Price:       price,
		Orders:      make([]*Order, 0, 4),
		TotalVolume: decimal.Zero,
	}
}

// Append queues an order behind every order already at this level.
func (l *Limit) Append(order *Order) {
	l.Orders = append(l.Orders, order)
	l.TotalVolume = l.TotalVolume.Add(order.Remaining)
}

// Remove takes an order out of the queue, keeping the others in arrival order.
func (l *Limit) Remove(orderID string) (*Order, bool) {
	for i, o := range l.Orders {
		if o.ID == orderID {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalVolume = l.TotalVolume.Sub(o.Remaining)
			return o, true
		}
	}
	return nil, false
}

// Consume records that quantity was filled against the head of the queue and
// drops the head once it is filled.
func (l *Limit) Consume(quantity decimal.Decimal) {
	l.TotalVolume = l.TotalVolume.Sub(quantity)
	for len(l.Orders) > 0 && l.Orders[0].IsFilled() {
		l.Orders[0] = nil
		l.Orders = l.Orders[1:]
	}
}

// IsEmpty checks if the limit has no orders
func (l *Limit) IsEmpty() bool {
	return len(l.Orders) == 0
}

// Level is a read-only view of one price level.
type Level struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Orders int             `json:"orders"`
}
