package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/pnlstats/internal/domain"
)

// LiabilityRepository implements usecase.LiabilityRepository over the
// append-only liabilities table.
type LiabilityRepository struct {
	pool *pgxpool.Pool
}

// NewLiabilityRepository creates a new LiabilityRepository.
func NewLiabilityRepository(pool *pgxpool.Pool) *LiabilityRepository {
	return &LiabilityRepository{pool: pool}
}

// GroupedAfter returns the next batch of liability groups past the
// watermark. MIN over reference columns is safe: all rows of a group share
// them. Codes 201/202 are main-account credits/debits, 211/212 the locked
// variants used by withdrawals.
func (r *LiabilityRepository) GroupedAfter(ctx context.Context, afterID int64, limit int) ([]domain.LiabilityGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT MAX(id) AS id, MIN(reference_type) AS reference_type, MIN(reference_id) AS reference_id
		FROM liabilities
		WHERE id > $1
		  AND ((reference_type IN ('Trade','Deposit','Adjustment') AND code IN (201,202))
		    OR (reference_type = 'Withdraw' AND code IN (211,212)))
		GROUP BY reference_type, reference_id
		ORDER BY MAX(id) ASC
		LIMIT $2`,
		afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.LiabilityGroup
	for rows.Next() {
		var g domain.LiabilityGroup
		var kind string
		if err := rows.Scan(&g.MaxID, &kind, &g.ReferenceID); err != nil {
			return nil, err
		}
		g.Kind = domain.EventKind(kind)
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// TransfersAfter returns per-(currency, member, reference) nets of transfer
// liabilities past the watermark.
func (r *LiabilityRepository) TransfersAfter(ctx context.Context, afterID int64) ([]domain.TransferRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT MAX(id) AS id, currency_id, member_id, reference_id, SUM(credit - debit) AS total
		FROM liabilities
		WHERE reference_type = 'Transfer' AND id > $1
		GROUP BY currency_id, member_id, reference_id`,
		afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransferRow
	for rows.Next() {
		var row domain.TransferRow
		var total pgtype.Numeric
		if err := rows.Scan(&row.MaxID, &row.CurrencyID, &row.MemberID, &row.ReferenceID, &total); err != nil {
			return nil, err
		}
		row.Net = numericToDecimal(total)
		out = append(out, row)
	}

	return out, rows.Err()
}
