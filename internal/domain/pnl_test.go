package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNewPnLRecord(t *testing.T) {
	c := Contribution{
		MemberID:      7,
		PnLCurrencyID: "usd",
		CurrencyID:    "btc",
		Credit:        d("2"),
		CreditFees:    d("0.01"),
		CreditValue:   d("20"),
		LiabilityID:   42,
	}

	rec := NewPnLRecord(c)

	assert.True(t, rec.TotalBalanceValue.Equal(d("20")))
	assert.True(t, rec.AverageBalancePrice.Equal(d("10")))
	assert.True(t, rec.TotalCredit.Equal(d("2")))
	assert.Equal(t, int64(42), rec.LastLiabilityID)
}

func TestNewPnLRecord_DebitOnly(t *testing.T) {
	rec := NewPnLRecord(Contribution{
		Debit:      d("5"),
		DebitValue: d("50"),
	})

	assert.True(t, rec.AverageBalancePrice.IsZero())
	assert.True(t, rec.TotalBalanceValue.IsZero())
	assert.True(t, rec.TotalDebit.Equal(d("5")))
}

func TestPnLRecord_Merge(t *testing.T) {
	tests := []struct {
		name         string
		existing     PnLRecord
		contribution Contribution
		wantBalance  decimal.Decimal
		wantAverage  decimal.Decimal
	}{
		{
			name: "credit reweights average",
			existing: PnLRecord{
				TotalCredit:         d("10"),
				TotalBalanceValue:   d("100"),
				AverageBalancePrice: d("10"),
			},
			contribution: Contribution{Credit: d("5"), CreditValue: d("60")},
			wantBalance:  d("160"),
			wantAverage:  d("160").Div(d("15")),
		},
		{
			name: "debit consumes at pre-merge average",
			existing: PnLRecord{
				TotalCredit:         d("10"),
				TotalBalanceValue:   d("100"),
				AverageBalancePrice: d("10"),
			},
			contribution: Contribution{Debit: d("3")},
			wantBalance:  d("70"),
			wantAverage:  d("10"),
		},
		{
			name: "debit with fees consumes both at average",
			existing: PnLRecord{
				TotalCredit:         d("10"),
				TotalBalanceValue:   d("100"),
				AverageBalancePrice: d("10"),
			},
			contribution: Contribution{Debit: d("2"), DebitFees: d("1")},
			wantBalance:  d("70"),
			wantAverage:  d("10"),
		},
		{
			name: "mixed credit and debit uses pre-merge debit total",
			existing: PnLRecord{
				TotalCredit:         d("10"),
				TotalDebit:          d("4"),
				TotalBalanceValue:   d("60"),
				AverageBalancePrice: d("10"),
			},
			contribution: Contribution{Credit: d("2"), CreditValue: d("30"), Debit: d("1")},
			// 60 + 30 - 1*10 = 80, held = 2 + 10 - 4 = 8
			wantBalance: d("80"),
			wantAverage: d("10"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.existing
			rec.Merge(tt.contribution)

			assert.True(t, rec.TotalBalanceValue.Equal(tt.wantBalance),
				"balance = %s, want %s", rec.TotalBalanceValue, tt.wantBalance)
			assert.True(t, rec.AverageBalancePrice.Equal(tt.wantAverage),
				"average = %s, want %s", rec.AverageBalancePrice, tt.wantAverage)
		})
	}
}

func TestPnLRecord_MergeAccumulatesAdditiveFields(t *testing.T) {
	rec := PnLRecord{
		TotalCredit:     d("1"),
		TotalCreditFees: d("0.1"),
		TotalDebit:      d("0.5"),
		TotalDebitValue: d("5"),
		TotalDebitFees:  d("0.05"),
		LastLiabilityID: 10,
	}

	rec.Merge(Contribution{
		Credit:      d("2"),
		CreditFees:  d("0.2"),
		CreditValue: d("10"),
		Debit:       d("1"),
		DebitValue:  d("4"),
		DebitFees:   d("0.1"),
		LiabilityID: 15,
	})

	assert.True(t, rec.TotalCredit.Equal(d("3")))
	assert.True(t, rec.TotalCreditFees.Equal(d("0.3")))
	assert.True(t, rec.TotalDebit.Equal(d("1.5")))
	assert.True(t, rec.TotalDebitValue.Equal(d("9")))
	assert.True(t, rec.TotalDebitFees.Equal(d("0.15")))
	assert.Equal(t, int64(15), rec.LastLiabilityID)
}

func TestPnLRecord_WatermarkNeverMovesBackward(t *testing.T) {
	rec := PnLRecord{LastLiabilityID: 100}
	rec.Merge(Contribution{Credit: d("1"), CreditValue: d("1"), LiabilityID: 90})

	require.Equal(t, int64(100), rec.LastLiabilityID)
}

func TestContribution_Key(t *testing.T) {
	c := Contribution{MemberID: 3, PnLCurrencyID: "usd", CurrencyID: "eth"}

	assert.Equal(t, PnLKey{MemberID: 3, PnLCurrencyID: "usd", CurrencyID: "eth"}, c.Key())
}
