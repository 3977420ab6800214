package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/pnlstats/internal/domain"
	"github.com/iho/pnlstats/internal/usecase"
)

// PnLRepository implements usecase.PnLRepository over the stats_member_pnl
// table. Rows are merged in application code; Upsert writes the full merged
// row, so callers must hold the row lock taken by GetForUpdate.
type PnLRepository struct {
	pool *pgxpool.Pool
}

// NewPnLRepository creates a new PnLRepository.
func NewPnLRepository(pool *pgxpool.Pool) *PnLRepository {
	return &PnLRepository{pool: pool}
}

// MaxLiabilityID returns the resumption checkpoint for a reporting currency.
func (r *PnLRepository) MaxLiabilityID(ctx context.Context, pnlCurrencyID string) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(last_liability_id), 0) FROM stats_member_pnl WHERE pnl_currency_id = $1`,
		pnlCurrencyID).Scan(&max)
	if err != nil {
		return 0, err
	}

	return max, nil
}

// GetForUpdate locks and returns the row for a key.
func (r *PnLRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, key domain.PnLKey) (*domain.PnLRecord, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT member_id, pnl_currency_id, currency_id,
		       total_credit, total_credit_fees, total_credit_value,
		       total_debit, total_debit_value, total_debit_fees,
		       total_balance_value, average_balance_price,
		       last_liability_id, updated_at
		FROM stats_member_pnl
		WHERE member_id = $1 AND pnl_currency_id = $2 AND currency_id = $3
		FOR UPDATE`,
		key.MemberID, key.PnLCurrencyID, key.CurrencyID)

	var rec domain.PnLRecord
	var credit, creditFees, creditValue, debit, debitValue, debitFees, balanceValue, averagePrice pgtype.Numeric
	var updatedAt pgtype.Timestamptz

	err := row.Scan(
		&rec.MemberID, &rec.PnLCurrencyID, &rec.CurrencyID,
		&credit, &creditFees, &creditValue,
		&debit, &debitValue, &debitFees,
		&balanceValue, &averagePrice,
		&rec.LastLiabilityID, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPnLRecordNotFound
		}
		return nil, err
	}

	rec.TotalCredit = numericToDecimal(credit)
	rec.TotalCreditFees = numericToDecimal(creditFees)
	rec.TotalCreditValue = numericToDecimal(creditValue)
	rec.TotalDebit = numericToDecimal(debit)
	rec.TotalDebitValue = numericToDecimal(debitValue)
	rec.TotalDebitFees = numericToDecimal(debitFees)
	rec.TotalBalanceValue = numericToDecimal(balanceValue)
	rec.AverageBalancePrice = numericToDecimal(averagePrice)
	rec.UpdatedAt = updatedAt.Time

	return &rec, nil
}

// Upsert writes the full merged row. last_liability_id only moves forward.
func (r *PnLRepository) Upsert(ctx context.Context, tx usecase.Transaction, record *domain.PnLRecord) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO stats_member_pnl (
			member_id, pnl_currency_id, currency_id,
			total_credit, total_credit_fees, total_credit_value,
			total_debit, total_debit_value, total_debit_fees,
			total_balance_value, average_balance_price,
			last_liability_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (member_id, pnl_currency_id, currency_id) DO UPDATE SET
			total_credit = EXCLUDED.total_credit,
			total_credit_fees = EXCLUDED.total_credit_fees,
			total_credit_value = EXCLUDED.total_credit_value,
			total_debit = EXCLUDED.total_debit,
			total_debit_value = EXCLUDED.total_debit_value,
			total_debit_fees = EXCLUDED.total_debit_fees,
			total_balance_value = EXCLUDED.total_balance_value,
			average_balance_price = EXCLUDED.average_balance_price,
			last_liability_id = GREATEST(stats_member_pnl.last_liability_id, EXCLUDED.last_liability_id),
			updated_at = EXCLUDED.updated_at`,
		record.MemberID, record.PnLCurrencyID, record.CurrencyID,
		decimalToNumeric(record.TotalCredit), decimalToNumeric(record.TotalCreditFees), decimalToNumeric(record.TotalCreditValue),
		decimalToNumeric(record.TotalDebit), decimalToNumeric(record.TotalDebitValue), decimalToNumeric(record.TotalDebitFees),
		decimalToNumeric(record.TotalBalanceValue), decimalToNumeric(record.AverageBalancePrice),
		record.LastLiabilityID, pgtype.Timestamptz{Time: record.UpdatedAt, Valid: true},
	)

	return err
}
