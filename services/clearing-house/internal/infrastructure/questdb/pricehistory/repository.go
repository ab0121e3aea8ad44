// Package pricehistory stores trade prices in QuestDB and serves marks and
// daily closes for margining.
package pricehistory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/questdb"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	"github.com/shopspring/decimal"
)

// ErrNoPrice is returned when an instrument has never traded.
var ErrNoPrice = errors.New("no price recorded for instrument")

const (
	insertQuery = `INSERT INTO prices (timestamp, instrument, price) VALUES ($1, $2, $3)`

	latestQuery = `SELECT price FROM prices WHERE instrument = $1 LATEST ON timestamp PARTITION BY instrument`

	closesQuery = `SELECT timestamp, last(price) AS close FROM prices WHERE instrument = $1 SAMPLE BY 1d ALIGN TO CALENDAR ORDER BY timestamp DESC LIMIT $2`
)

// Repository reads and writes the prices table.
type Repository struct {
	client questdb.QuestDBClient
}

var (
	_ marginv1.PriceHistory         = (*Repository)(nil)
	_ collaboratorv1.PriceReference = (*Repository)(nil)
)

// NewRepository creates a new price history repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{client: client}
}

// Record stores one traded price.
func (r *Repository) Record(ctx context.Context, instrument string, price decimal.Decimal, at time.Time) error {
	if err := r.client.Exec(ctx, insertQuery, at, instrument, price.InexactFloat64()); err != nil {
		return fmt.Errorf("failed to record price: %w", err)
	}
	return nil
}

// LatestPrice returns the last traded price of instrument.
func (r *Repository) LatestPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	rows, err := r.client.Query(ctx, latestQuery, instrument)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query latest price: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return decimal.Zero, fmt.Errorf("failed to read latest price: %w", err)
		}
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, instrument)
	}
	var price float64
	if err := rows.Scan(&price); err != nil {
		return decimal.Zero, fmt.Errorf("failed to scan latest price: %w", err)
	}
	return decimal.NewFromFloat(price), nil
}

// DailyCloses returns up to days daily closes of instrument, oldest first.
func (r *Repository) DailyCloses(ctx context.Context, instrument string, days int) ([]marginv1.PricePoint, error) {
	rows, err := r.client.Query(ctx, closesQuery, instrument, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily closes: %w", err)
	}
	defer rows.Close()

	var points []marginv1.PricePoint
	for rows.Next() {
		var (
			day     time.Time
			closing float64
		)
		if err := rows.Scan(&day, &closing); err != nil {
			return nil, fmt.Errorf("failed to scan daily close: %w", err)
		}
		points = append(points, marginv1.PricePoint{Day: day.UTC(), Close: decimal.NewFromFloat(closing)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily closes: %w", err)
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}
