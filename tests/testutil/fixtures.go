package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// D parses a decimal literal, failing the test on malformed input.
func D(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", s, err)
	}
	return d
}

// BTCUSDTrade builds a btcusd fill between a maker buy and a taker sell.
func BTCUSDTrade(t *testing.T, id int64, price, amount string, makerID, takerID int64, feeRate string) *domain.Trade {
	t.Helper()

	p := D(t, price)
	a := D(t, amount)

	return &domain.Trade{
		ID:              id,
		MarketID:        "btcusd",
		BaseCurrencyID:  "btc",
		QuoteCurrencyID: "usd",
		Price:           p,
		Amount:          a,
		Total:           p.Mul(a),
		MakerOrder: domain.Order{
			ID:       id * 100,
			MemberID: makerID,
			Side:     domain.SideBuy,
			FeeRate:  D(t, feeRate),
		},
		TakerOrder: domain.Order{
			ID:       id*100 + 1,
			MemberID: takerID,
			Side:     domain.SideSell,
			FeeRate:  D(t, feeRate),
		},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Deposit builds a completed deposit.
func Deposit(t *testing.T, id, memberID int64, currencyID, amount string) *domain.Deposit {
	t.Helper()

	return &domain.Deposit{
		ID:         id,
		MemberID:   memberID,
		CurrencyID: currencyID,
		Amount:     D(t, amount),
		Fee:        decimal.Zero,
		CreatedAt:  time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
	}
}

// Withdraw builds a completed withdrawal with a fee charged on top.
func Withdraw(t *testing.T, id, memberID int64, currencyID, amount, fee string) *domain.Withdraw {
	t.Helper()

	return &domain.Withdraw{
		ID:         id,
		MemberID:   memberID,
		CurrencyID: currencyID,
		Amount:     D(t, amount),
		Fee:        D(t, fee),
		CreatedAt:  time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
	}
}

// TransferLeg builds one per-member, per-currency transfer net row.
func TransferLeg(t *testing.T, maxID, referenceID, memberID int64, currencyID, net string) domain.TransferRow {
	t.Helper()

	return domain.TransferRow{
		MaxID:       maxID,
		ReferenceID: referenceID,
		MemberID:    memberID,
		CurrencyID:  currencyID,
		Net:         D(t, net),
	}
}
