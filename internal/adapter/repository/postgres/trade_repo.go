package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/pnlstats/internal/domain"
)

// TradeRepository implements usecase.TradeRepository.
type TradeRepository struct {
	pool *pgxpool.Pool
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

// GetByID returns a trade with both order legs attached.
func (r *TradeRepository) GetByID(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT t.id, t.market_id, m.base_unit, m.quote_unit,
		       t.price, t.amount, t.total, t.created_at,
		       mk.id, mk.member_id, mk.side, mk.fee,
		       tk.id, tk.member_id, tk.side, tk.fee
		FROM trades t
		JOIN markets m ON m.id = t.market_id
		JOIN orders mk ON mk.id = t.maker_order_id
		JOIN orders tk ON tk.id = t.taker_order_id
		WHERE t.id = $1`,
		id)

	var t domain.Trade
	var price, amount, total, makerFee, takerFee pgtype.Numeric
	var makerSide, takerSide string
	var createdAt pgtype.Timestamptz

	err := row.Scan(
		&t.ID, &t.MarketID, &t.BaseCurrencyID, &t.QuoteCurrencyID,
		&price, &amount, &total, &createdAt,
		&t.MakerOrder.ID, &t.MakerOrder.MemberID, &makerSide, &makerFee,
		&t.TakerOrder.ID, &t.TakerOrder.MemberID, &takerSide, &takerFee,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}

	t.Price = numericToDecimal(price)
	t.Amount = numericToDecimal(amount)
	t.Total = numericToDecimal(total)
	t.CreatedAt = createdAt.Time
	t.MakerOrder.Side = domain.OrderSide(makerSide)
	t.MakerOrder.FeeRate = numericToDecimal(makerFee)
	t.TakerOrder.Side = domain.OrderSide(takerSide)
	t.TakerOrder.FeeRate = numericToDecimal(takerFee)

	return &t, nil
}
