package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// MarketRepository implements usecase.MarketRepository.
type MarketRepository struct {
	pool *pgxpool.Pool
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(pool *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{pool: pool}
}

// FindDirect returns the market quoting base in quote.
func (r *MarketRepository) FindDirect(ctx context.Context, baseCurrencyID, quoteCurrencyID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM markets WHERE base_unit = $1 AND quote_unit = $2`,
		baseCurrencyID, quoteCurrencyID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrMarketNotFound
		}
		return "", err
	}

	return id, nil
}

// TradePriceRepository implements usecase.TradePriceRepository over the
// trade history.
type TradePriceRepository struct {
	pool *pgxpool.Pool
}

// NewTradePriceRepository creates a new TradePriceRepository.
func NewTradePriceRepository(pool *pgxpool.Pool) *TradePriceRepository {
	return &TradePriceRepository{pool: pool}
}

// NearestAtOrBefore returns the price of the latest trade on the market at
// or before the given time.
func (r *TradePriceRepository) NearestAtOrBefore(ctx context.Context, marketID string, at time.Time) (decimal.Decimal, error) {
	var price pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT price
		FROM trades
		WHERE market_id = $1 AND created_at <= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		marketID, at).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrNoTrades
		}
		return decimal.Zero, err
	}

	return numericToDecimal(price), nil
}
