package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// LiabilityRepository reads the append-only liability ledger.
type LiabilityRepository interface {
	// GroupedAfter returns up to limit liability groups with id > afterID,
	// restricted to recognized event codes, ordered by ascending max id.
	GroupedAfter(ctx context.Context, afterID int64, limit int) ([]domain.LiabilityGroup, error)
	// TransfersAfter returns per-(currency, member, reference) nets of all
	// transfer liabilities with id > afterID.
	TransfersAfter(ctx context.Context, afterID int64) ([]domain.TransferRow, error)
}

// TradeRepository looks up trades with both order legs attached.
type TradeRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Trade, error)
}

// DepositRepository looks up deposits.
type DepositRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Deposit, error)
}

// WithdrawRepository looks up withdrawals.
type WithdrawRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Withdraw, error)
}

// AdjustmentRepository looks up manual adjustments.
type AdjustmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Adjustment, error)
}

// RevenueRepository looks up platform fee rows tied to a transfer reference.
type RevenueRepository interface {
	ListByTransfer(ctx context.Context, referenceID int64, currencyID string) ([]domain.Revenue, error)
}

// MemberResolver resolves the member owning an operations account number.
type MemberResolver interface {
	MemberIDByAccountNumber(ctx context.Context, accountNumber string) (int64, error)
}

// MarketRepository resolves the direct market for a currency pair.
type MarketRepository interface {
	// FindDirect returns the market id quoting base in quote, or
	// domain.ErrMarketNotFound.
	FindDirect(ctx context.Context, baseCurrencyID, quoteCurrencyID string) (string, error)
}

// TradePriceRepository queries historical trade prices per market.
type TradePriceRepository interface {
	// NearestAtOrBefore returns the price of the latest trade on the market
	// at or before the given time, or domain.ErrNoTrades.
	NearestAtOrBefore(ctx context.Context, marketID string, at time.Time) (decimal.Decimal, error)
}

// PnLRepository persists the running statistics rows.
type PnLRepository interface {
	// MaxLiabilityID returns the checkpoint for a reporting currency: the
	// highest LastLiabilityID across its rows, 0 when none exist.
	MaxLiabilityID(ctx context.Context, pnlCurrencyID string) (int64, error)
	// GetForUpdate locks and returns the row for a key inside the given
	// transaction, or domain.ErrPnLRecordNotFound.
	GetForUpdate(ctx context.Context, tx Transaction, key domain.PnLKey) (*domain.PnLRecord, error)
	// Upsert writes the full merged row inside the given transaction.
	Upsert(ctx context.Context, tx Transaction, record *domain.PnLRecord) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// RunnerLock guards against a second concurrent runner instance. Two
// concurrent passes over the same reporting currency would read the same
// watermark and double-apply contributions.
type RunnerLock interface {
	// Acquire takes the named lock. Returns false when another holder owns it.
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}

// PassObserver receives per-pass measurements. A nil observer disables
// instrumentation.
type PassObserver interface {
	PassCompleted(pnlCurrencyID string, groups int, duration time.Duration)
	PassFailed(pnlCurrencyID string)
	WatermarkAdvanced(pnlCurrencyID string, liabilityID int64)
}
