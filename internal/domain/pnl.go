package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLKey identifies one running statistics row.
type PnLKey struct {
	MemberID      int64
	PnLCurrencyID string
	CurrencyID    string
}

// Contribution is the per-event, per-currency delta produced by
// decomposition. Values are expressed in the reporting currency.
type Contribution struct {
	MemberID      int64
	PnLCurrencyID string
	CurrencyID    string
	Credit        decimal.Decimal
	CreditFees    decimal.Decimal
	CreditValue   decimal.Decimal
	Debit         decimal.Decimal
	DebitValue    decimal.Decimal
	DebitFees     decimal.Decimal
	LiabilityID   int64
}

// Key returns the statistics row the contribution belongs to.
func (c Contribution) Key() PnLKey {
	return PnLKey{MemberID: c.MemberID, PnLCurrencyID: c.PnLCurrencyID, CurrencyID: c.CurrencyID}
}

// PnLRecord is the persisted running total for one (member, reporting
// currency, currency) triple. Rows are created on first contribution and
// thereafter only merged; LastLiabilityID is the resumption watermark.
type PnLRecord struct {
	MemberID            int64
	PnLCurrencyID       string
	CurrencyID          string
	TotalCredit         decimal.Decimal
	TotalCreditFees     decimal.Decimal
	TotalCreditValue    decimal.Decimal
	TotalDebit          decimal.Decimal
	TotalDebitValue     decimal.Decimal
	TotalDebitFees      decimal.Decimal
	TotalBalanceValue   decimal.Decimal
	AverageBalancePrice decimal.Decimal
	LastLiabilityID     int64
	UpdatedAt           time.Time
}

// NewPnLRecord materializes the first row for a key from its initial
// contribution. The opening balance value is the credit value and the
// opening average price is credit value per credited unit.
func NewPnLRecord(c Contribution) *PnLRecord {
	avg := decimal.Zero
	if !c.Credit.IsZero() {
		avg = c.CreditValue.Div(c.Credit)
	}
	return &PnLRecord{
		MemberID:            c.MemberID,
		PnLCurrencyID:       c.PnLCurrencyID,
		CurrencyID:          c.CurrencyID,
		TotalCredit:         c.Credit,
		TotalCreditFees:     c.CreditFees,
		TotalCreditValue:    c.CreditValue,
		TotalDebit:          c.Debit,
		TotalDebitValue:     c.DebitValue,
		TotalDebitFees:      c.DebitFees,
		TotalBalanceValue:   c.CreditValue,
		AverageBalancePrice: avg,
		LastLiabilityID:     c.LiabilityID,
	}
}

// Merge folds one contribution into the running totals using the
// weighted-average cost model. A debit consumes inventory at the pre-merge
// average price, so the balance value adjustment happens before the new
// average is computed, and the new average denominator uses the pre-merge
// debit total.
func (r *PnLRecord) Merge(c Contribution) {
	debitAdjustment := decimal.Zero
	if !c.Debit.IsZero() {
		debitAdjustment = c.Debit.Add(c.DebitFees).Mul(r.AverageBalancePrice)
	}
	newBalanceValue := r.TotalBalanceValue.Add(c.CreditValue).Sub(debitAdjustment)

	if !c.Credit.IsZero() {
		held := c.Credit.Add(r.TotalCredit).Sub(r.TotalDebit)
		if !held.IsZero() {
			r.AverageBalancePrice = newBalanceValue.Div(held)
		}
	}

	r.TotalBalanceValue = newBalanceValue
	r.TotalCredit = r.TotalCredit.Add(c.Credit)
	r.TotalCreditFees = r.TotalCreditFees.Add(c.CreditFees)
	r.TotalCreditValue = r.TotalCreditValue.Add(c.CreditValue)
	r.TotalDebit = r.TotalDebit.Add(c.Debit)
	r.TotalDebitValue = r.TotalDebitValue.Add(c.DebitValue)
	r.TotalDebitFees = r.TotalDebitFees.Add(c.DebitFees)

	if c.LiabilityID > r.LastLiabilityID {
		r.LastLiabilityID = c.LiabilityID
	}
}
