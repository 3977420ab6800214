package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/pnlstats/internal/domain"
)

// DepositRepository implements usecase.DepositRepository.
type DepositRepository struct {
	pool *pgxpool.Pool
}

// NewDepositRepository creates a new DepositRepository.
func NewDepositRepository(pool *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{pool: pool}
}

// GetByID returns a deposit.
func (r *DepositRepository) GetByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, member_id, currency_id, amount, fee, created_at
		FROM deposits
		WHERE id = $1`,
		id)

	var d domain.Deposit
	var amount, fee pgtype.Numeric
	var createdAt pgtype.Timestamptz

	err := row.Scan(&d.ID, &d.MemberID, &d.CurrencyID, &amount, &fee, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepositNotFound
		}
		return nil, err
	}

	d.Amount = numericToDecimal(amount)
	d.Fee = numericToDecimal(fee)
	d.CreatedAt = createdAt.Time

	return &d, nil
}

// WithdrawRepository implements usecase.WithdrawRepository.
type WithdrawRepository struct {
	pool *pgxpool.Pool
}

// NewWithdrawRepository creates a new WithdrawRepository.
func NewWithdrawRepository(pool *pgxpool.Pool) *WithdrawRepository {
	return &WithdrawRepository{pool: pool}
}

// GetByID returns a withdrawal.
func (r *WithdrawRepository) GetByID(ctx context.Context, id int64) (*domain.Withdraw, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, member_id, currency_id, amount, fee, created_at
		FROM withdraws
		WHERE id = $1`,
		id)

	var w domain.Withdraw
	var amount, fee pgtype.Numeric
	var createdAt pgtype.Timestamptz

	err := row.Scan(&w.ID, &w.MemberID, &w.CurrencyID, &amount, &fee, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawNotFound
		}
		return nil, err
	}

	w.Amount = numericToDecimal(amount)
	w.Fee = numericToDecimal(fee)
	w.CreatedAt = createdAt.Time

	return &w, nil
}

// AdjustmentRepository implements usecase.AdjustmentRepository.
type AdjustmentRepository struct {
	pool *pgxpool.Pool
}

// NewAdjustmentRepository creates a new AdjustmentRepository.
func NewAdjustmentRepository(pool *pgxpool.Pool) *AdjustmentRepository {
	return &AdjustmentRepository{pool: pool}
}

// GetByID returns an adjustment.
func (r *AdjustmentRepository) GetByID(ctx context.Context, id int64) (*domain.Adjustment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, currency_id, amount, receiving_account_number, created_at
		FROM adjustments
		WHERE id = $1`,
		id)

	var a domain.Adjustment
	var amount pgtype.Numeric
	var createdAt pgtype.Timestamptz

	err := row.Scan(&a.ID, &a.CurrencyID, &amount, &a.ReceivingAccountNumber, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAdjustmentNotFound
		}
		return nil, err
	}

	a.Amount = numericToDecimal(amount)
	a.CreatedAt = createdAt.Time

	return &a, nil
}

// RevenueRepository implements usecase.RevenueRepository.
type RevenueRepository struct {
	pool *pgxpool.Pool
}

// NewRevenueRepository creates a new RevenueRepository.
func NewRevenueRepository(pool *pgxpool.Pool) *RevenueRepository {
	return &RevenueRepository{pool: pool}
}

// ListByTransfer returns the platform fee rows recorded against a transfer
// reference in one currency.
func (r *RevenueRepository) ListByTransfer(ctx context.Context, referenceID int64, currencyID string) ([]domain.Revenue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_id, currency_id, credit
		FROM revenues
		WHERE reference_type = 'Transfer' AND reference_id = $1 AND currency_id = $2`,
		referenceID, currencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Revenue
	for rows.Next() {
		var rev domain.Revenue
		var credit pgtype.Numeric
		if err := rows.Scan(&rev.MemberID, &rev.CurrencyID, &credit); err != nil {
			return nil, err
		}
		rev.Credit = numericToDecimal(credit)
		out = append(out, rev)
	}

	return out, rows.Err()
}

// MemberRepository implements usecase.MemberResolver.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// MemberIDByAccountNumber resolves the member owning an operations account
// number of the form "code-memberUID-currency".
func (r *MemberRepository) MemberIDByAccountNumber(ctx context.Context, accountNumber string) (int64, error) {
	_, memberUID, _, err := domain.SplitAccountNumber(accountNumber)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.pool.QueryRow(ctx, `SELECT id FROM members WHERE uid = $1`, memberUID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrMemberNotFound
		}
		return 0, err
	}

	return id, nil
}
