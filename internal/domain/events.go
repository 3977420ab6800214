package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order on a market.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Order is one leg of a matched trade.
type Order struct {
	ID       int64
	MemberID int64
	Side     OrderSide
	FeeRate  decimal.Decimal
}

// Trade is a matched fill between a maker and a taker order.
type Trade struct {
	ID              int64
	MarketID        string
	BaseCurrencyID  string
	QuoteCurrencyID string
	Price           decimal.Decimal
	Amount          decimal.Decimal
	Total           decimal.Decimal
	MakerOrder      Order
	TakerOrder      Order
	CreatedAt       time.Time
}

// IncomeCurrency returns the currency the order's owner receives.
func (t *Trade) IncomeCurrency(o *Order) string {
	if o.Side == SideBuy {
		return t.BaseCurrencyID
	}
	return t.QuoteCurrencyID
}

// OutcomeCurrency returns the currency the order's owner spends.
func (t *Trade) OutcomeCurrency(o *Order) string {
	if o.Side == SideBuy {
		return t.QuoteCurrencyID
	}
	return t.BaseCurrencyID
}

// Deposit is an inbound funding event.
type Deposit struct {
	ID         int64
	MemberID   int64
	CurrencyID string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	CreatedAt  time.Time
}

// Withdraw is an outbound funding event. Fee is charged on top of Amount.
type Withdraw struct {
	ID         int64
	MemberID   int64
	CurrencyID string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	CreatedAt  time.Time
}

// Adjustment is a signed manual correction. The affected member is not
// stored on the record and must be resolved from ReceivingAccountNumber.
type Adjustment struct {
	ID                     int64
	CurrencyID             string
	Amount                 decimal.Decimal
	ReceivingAccountNumber string
	CreatedAt              time.Time
}

// SplitAccountNumber parses a "code-memberUID-currency" account number.
func SplitAccountNumber(accountNumber string) (code, memberUID, currencyID string, err error) {
	parts := strings.Split(accountNumber, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed account number %q", accountNumber)
	}
	return parts[0], parts[1], parts[2], nil
}
