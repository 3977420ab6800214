package domain

import (
	"github.com/shopspring/decimal"
)

// EventKind identifies the domain event a liability row originates from.
type EventKind string

const (
	EventTrade      EventKind = "Trade"
	EventDeposit    EventKind = "Deposit"
	EventWithdraw   EventKind = "Withdraw"
	EventAdjustment EventKind = "Adjustment"
	EventTransfer   EventKind = "Transfer"
)

// LiabilityGroup is one unit of decomposition work: all liability rows
// sharing (reference type, reference id), collapsed to the highest row id.
// Row ids are strictly increasing and define processing order.
type LiabilityGroup struct {
	MaxID       int64
	Kind        EventKind
	ReferenceID int64
}

// TransferRow is the per-(currency, member) net of all transfer liabilities
// sharing a reference id: SUM(credit - debit) over the grouped rows.
type TransferRow struct {
	MaxID       int64
	ReferenceID int64
	MemberID    int64
	CurrencyID  string
	Net         decimal.Decimal
}

// Revenue is a platform fee row tied to a transfer reference. Fees are
// always folded into the debit side of the paying member's totals.
type Revenue struct {
	MemberID   int64
	CurrencyID string
	Credit     decimal.Decimal
}
