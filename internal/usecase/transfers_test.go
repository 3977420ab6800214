package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/pnlstats/internal/domain"
	"github.com/iho/pnlstats/internal/usecase"
	"github.com/iho/pnlstats/internal/usecase/mocks"
)

func newMatcher(t *testing.T) (*usecase.TransferMatcher, *mocks.MockRevenueRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	revenues := mocks.NewMockRevenueRepository(ctrl)
	return usecase.NewTransferMatcher(revenues, zerolog.Nop()), revenues
}

func TestTransferMatcher_SingleCurrencyIgnored(t *testing.T) {
	matcher, _ := newMatcher(t)

	rows := []domain.TransferRow{
		{MaxID: 1, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(10)},
		{MaxID: 2, ReferenceID: 100, MemberID: 6, CurrencyID: "btc", Net: decimal.NewFromInt(-10)},
	}

	contributions, count, err := matcher.Match(context.Background(), "usd", rows)
	require.NoError(t, err)
	assert.Empty(t, contributions)
	assert.Equal(t, 2, count)
}

func TestTransferMatcher_ZeroNetRowsSkipped(t *testing.T) {
	matcher, _ := newMatcher(t)

	rows := []domain.TransferRow{
		{MaxID: 1, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.Zero},
	}

	contributions, count, err := matcher.Match(context.Background(), "usd", rows)
	require.NoError(t, err)
	assert.Empty(t, contributions)
	assert.Zero(t, count)
}

func TestTransferMatcher_TwoCurrencyExchange(t *testing.T) {
	matcher, revenues := newMatcher(t)

	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), "btc").Return(nil, nil)
	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), "usd").Return(nil, nil)

	rows := []domain.TransferRow{
		{MaxID: 11, ReferenceID: 100, MemberID: 5, CurrencyID: "usd", Net: decimal.NewFromInt(100)},
		{MaxID: 12, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
	}

	contributions, count, err := matcher.Match(context.Background(), "usd", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, contributions, 2)

	// Implied rate 100/50 = 2 applied to the non-reporting leg.
	btc := contributions[0]
	assert.Equal(t, "btc", btc.CurrencyID)
	assert.True(t, btc.Debit.Equal(decimal.NewFromInt(50)))
	assert.True(t, btc.DebitValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(12), btc.LiabilityID)

	usd := contributions[1]
	assert.Equal(t, "usd", usd.CurrencyID)
	assert.True(t, usd.Credit.Equal(decimal.NewFromInt(100)))
	assert.True(t, usd.CreditValue.Equal(decimal.NewFromInt(100)), "reporting leg passes through unscaled")
	assert.Equal(t, int64(11), usd.LiabilityID)
}

func TestTransferMatcher_FeesFoldIntoDebitSide(t *testing.T) {
	matcher, revenues := newMatcher(t)

	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), "btc").Return([]domain.Revenue{
		{MemberID: 5, CurrencyID: "btc", Credit: decimal.NewFromInt(2)},
	}, nil)
	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), "usd").Return(nil, nil)

	rows := []domain.TransferRow{
		{MaxID: 11, ReferenceID: 100, MemberID: 5, CurrencyID: "usd", Net: decimal.NewFromInt(100)},
		{MaxID: 12, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
	}

	contributions, _, err := matcher.Match(context.Background(), "usd", rows)
	require.NoError(t, err)
	require.Len(t, contributions, 2)

	btc := contributions[0]
	assert.True(t, btc.DebitFees.Equal(decimal.NewFromInt(2)))
	assert.True(t, btc.Debit.Equal(decimal.NewFromInt(48)), "fee reduces the debit before valuation")
	assert.True(t, btc.DebitValue.Equal(decimal.NewFromInt(96)), "48 * implied rate 2")
}

func TestTransferMatcher_ThreeCurrenciesRejected(t *testing.T) {
	matcher, _ := newMatcher(t)

	rows := []domain.TransferRow{
		{MaxID: 1, ReferenceID: 100, MemberID: 5, CurrencyID: "usd", Net: decimal.NewFromInt(100)},
		{MaxID: 2, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
		{MaxID: 3, ReferenceID: 100, MemberID: 5, CurrencyID: "eth", Net: decimal.NewFromInt(-1)},
	}

	contributions, _, err := matcher.Match(context.Background(), "usd", rows)
	require.Error(t, err)
	assert.Nil(t, contributions)

	var unsupported *domain.UnsupportedTransferError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, int64(100), unsupported.ReferenceID)
	assert.Equal(t, []string{"btc", "eth", "usd"}, unsupported.CurrencyIDs)
}

func TestTransferMatcher_NeitherCurrencyIsReporting(t *testing.T) {
	matcher, revenues := newMatcher(t)

	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), gomock.Any()).Return(nil, nil).AnyTimes()

	rows := []domain.TransferRow{
		{MaxID: 1, ReferenceID: 100, MemberID: 5, CurrencyID: "eur", Net: decimal.NewFromInt(100)},
		{MaxID: 2, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
	}

	_, _, err := matcher.Match(context.Background(), "usd", rows)

	var unsupported *domain.UnsupportedTransferError
	require.True(t, errors.As(err, &unsupported))
}

func TestTransferMatcher_MemberWithOnlyReportingLegSkipped(t *testing.T) {
	matcher, revenues := newMatcher(t)

	revenues.EXPECT().ListByTransfer(gomock.Any(), int64(100), gomock.Any()).Return(nil, nil).AnyTimes()

	// Member 5 exchanged; member 6 only moved the reporting currency.
	rows := []domain.TransferRow{
		{MaxID: 11, ReferenceID: 100, MemberID: 5, CurrencyID: "usd", Net: decimal.NewFromInt(100)},
		{MaxID: 12, ReferenceID: 100, MemberID: 5, CurrencyID: "btc", Net: decimal.NewFromInt(-50)},
		{MaxID: 13, ReferenceID: 100, MemberID: 6, CurrencyID: "usd", Net: decimal.NewFromInt(5)},
	}

	contributions, _, err := matcher.Match(context.Background(), "usd", rows)
	require.NoError(t, err)
	require.Len(t, contributions, 2)
	for _, c := range contributions {
		assert.Equal(t, int64(5), c.MemberID)
	}
}
