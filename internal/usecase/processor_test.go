package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/pnlstats/internal/domain"
	"github.com/iho/pnlstats/internal/usecase"
	"github.com/iho/pnlstats/internal/usecase/mocks"
)

type processorFixture struct {
	*decomposerFixture
	revenues    *mocks.MockRevenueRepository
	liabilities *mocks.MockLiabilityRepository
	pnl         *mocks.MockPnLRepository
	txManager   *mocks.MockTransactionManager
	observer    *recordingObserver
	processor   *usecase.BatchProcessor
}

type recordingObserver struct {
	completed  int
	failed     int
	watermarks map[string]int64
}

func (o *recordingObserver) PassCompleted(pnlCurrencyID string, groups int, duration time.Duration) {
	o.completed++
}

func (o *recordingObserver) PassFailed(pnlCurrencyID string) {
	o.failed++
}

func (o *recordingObserver) WatermarkAdvanced(pnlCurrencyID string, liabilityID int64) {
	if o.watermarks == nil {
		o.watermarks = make(map[string]int64)
	}
	o.watermarks[pnlCurrencyID] = liabilityID
}

func newProcessorFixture(t *testing.T, pnlCurrencies ...string) *processorFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &processorFixture{
		decomposerFixture: newDecomposerFixture(t, nil),
		revenues:          mocks.NewMockRevenueRepository(ctrl),
		liabilities:       &mocks.MockLiabilityRepository{},
		pnl:               mocks.NewMockPnLRepository(),
		txManager:         mocks.NewMockTransactionManager(),
		observer:          &recordingObserver{},
	}

	f.processor = usecase.NewBatchProcessor(usecase.BatchProcessorParams{
		PnLCurrencies: pnlCurrencies,
		BatchSize:     1000,
		Liabilities:   f.liabilities,
		Decomposer:    f.decomposer,
		Matcher:       usecase.NewTransferMatcher(f.revenues, zerolog.Nop()),
		PnL:           f.pnl,
		TxManager:     f.txManager,
		Retrier:       mocks.PassthroughRetrier{},
		Observer:      f.observer,
		Logger:        zerolog.Nop(),
	})

	return f
}

func usdDeposit(id, liabilityID int64, amount string) (domain.LiabilityGroup, *domain.Deposit) {
	return domain.LiabilityGroup{MaxID: liabilityID, Kind: domain.EventDeposit, ReferenceID: id},
		&domain.Deposit{
			ID:         id,
			MemberID:   5,
			CurrencyID: "usd",
			Amount:     decimal.RequireFromString(amount),
			CreatedAt:  testTime,
		}
}

func TestBatchProcessor_EmptyPassIsIdempotent(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	count, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.txManager.Begins, "no transaction for an empty batch")
	assert.Zero(t, f.pnl.Upserts)
}

func TestBatchProcessor_CommitsBatchAndAdvancesWatermark(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	group, deposit := usdDeposit(1, 5, "100")
	f.liabilities.Groups = []domain.LiabilityGroup{group}
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(1)).Return(deposit, nil)

	count, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, f.txManager.Begins)
	assert.Equal(t, 1, f.txManager.Tx.Commits)

	record := f.pnl.Get(domain.PnLKey{MemberID: 5, PnLCurrencyID: "usd", CurrencyID: "usd"})
	require.NotNil(t, record)
	assert.True(t, record.TotalCredit.Equal(decimal.NewFromInt(100)))
	assert.True(t, record.AverageBalancePrice.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(5), record.LastLiabilityID)
	assert.Equal(t, int64(5), f.observer.watermarks["usd"])

	// A second pass sees the advanced watermark and finds no work.
	count, err = f.processor.ProcessCurrency(context.Background(), "usd")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, f.pnl.Upserts, "no further writes")
}

func TestBatchProcessor_SameKeyMergesSequentiallyWithinBatch(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	group1, deposit1 := usdDeposit(1, 5, "100")
	group2, deposit2 := usdDeposit(2, 6, "50")
	f.liabilities.Groups = []domain.LiabilityGroup{group1, group2}
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(1)).Return(deposit1, nil)
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(2)).Return(deposit2, nil)

	count, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	record := f.pnl.Get(domain.PnLKey{MemberID: 5, PnLCurrencyID: "usd", CurrencyID: "usd"})
	require.NotNil(t, record)
	assert.True(t, record.TotalCredit.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int64(6), record.LastLiabilityID)
}

func TestBatchProcessor_DecomposeErrorAbortsWholeBatch(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	group1, deposit1 := usdDeposit(1, 5, "100")
	f.liabilities.Groups = []domain.LiabilityGroup{
		group1,
		{MaxID: 6, Kind: domain.EventDeposit, ReferenceID: 2},
	}
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(1)).Return(deposit1, nil)
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(2)).Return(nil, domain.ErrDepositNotFound)

	_, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.Error(t, err)
	assert.Zero(t, f.txManager.Begins, "nothing committed when any event fails")
	assert.Zero(t, f.pnl.Upserts)
}

func TestBatchProcessor_CommitErrorRollsBack(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	group, deposit := usdDeposit(1, 5, "100")
	f.liabilities.Groups = []domain.LiabilityGroup{group}
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(1)).Return(deposit, nil)
	f.txManager.Tx.CommitFunc = func(ctx context.Context) error {
		return errors.New("connection reset")
	}

	_, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.Error(t, err)
	assert.Equal(t, 1, f.txManager.Tx.Rollbacks)
}

func TestBatchProcessor_ProcessAllIsolatesCurrencyFailures(t *testing.T) {
	f := newProcessorFixture(t, "bad", "usd")

	f.pnl.MaxLiabilityIDFunc = func(ctx context.Context, pnlCurrencyID string) (int64, error) {
		if pnlCurrencyID == "bad" {
			return 0, errors.New("db down")
		}
		return 0, nil
	}

	group, deposit := usdDeposit(1, 5, "100")
	f.liabilities.Groups = []domain.LiabilityGroup{group}
	f.deposits.EXPECT().GetByID(gomock.Any(), int64(1)).Return(deposit, nil)

	total := f.processor.ProcessAll(context.Background())

	assert.Equal(t, 1, total, "usd still processed after bad currency failed")
	assert.Equal(t, 1, f.observer.failed)
	assert.Equal(t, 1, f.observer.completed)
}

func TestBatchProcessor_TransferContributionsCommitted(t *testing.T) {
	f := newProcessorFixture(t, "usd")

	f.liabilities.Transfers = []domain.TransferRow{
		{MaxID: 11, ReferenceID: 100, MemberID: 5, CurrencyID: "usd", Net: decimal.NewFromInt(100)},
		{MaxID: 12, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
	}
	f.revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), gomock.Any()).Return(nil, nil).Times(2)

	count, err := f.processor.ProcessCurrency(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	btc := f.pnl.Get(domain.PnLKey{MemberID: 5, PnLCurrencyID: "usd", CurrencyID: "btc"})
	require.NotNil(t, btc)
	assert.True(t, btc.TotalDebitValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(12), f.observer.watermarks["usd"])
}
