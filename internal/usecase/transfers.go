package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// TransferMatcher pairs the legs of internal transfers. A transfer touching
// exactly two currencies is treated as one exchange: the reporting-currency
// leg carries its own value and the other leg is valued at the implied rate
// reporting_net / other_net. Platform fees tied to the reference are folded
// into the paying member's debit side before nets are computed; fees paid on
// credit legs are not supported.
type TransferMatcher struct {
	revenues RevenueRepository
	logger   zerolog.Logger
}

// NewTransferMatcher creates a new TransferMatcher.
func NewTransferMatcher(revenues RevenueRepository, logger zerolog.Logger) *TransferMatcher {
	return &TransferMatcher{revenues: revenues, logger: logger}
}

type transferTotals struct {
	credit      decimal.Decimal
	creditFees  decimal.Decimal
	debit       decimal.Decimal
	debitFees   decimal.Decimal
	amount      decimal.Decimal
	liabilityID int64
}

// memberTotals is the explicit two-level accumulator: member id, then
// currency id, with zero-valued totals materialized on first access.
type memberTotals map[int64]map[string]*transferTotals

func (s memberTotals) get(memberID int64, currencyID string) *transferTotals {
	byCurrency, ok := s[memberID]
	if !ok {
		byCurrency = make(map[string]*transferTotals)
		s[memberID] = byCurrency
	}

	totals, ok := byCurrency[currencyID]
	if !ok {
		totals = &transferTotals{
			credit:     decimal.Zero,
			creditFees: decimal.Zero,
			debit:      decimal.Zero,
			debitFees:  decimal.Zero,
			amount:     decimal.Zero,
		}
		byCurrency[currencyID] = totals
	}

	return totals
}

// Match converts transfer nets into contributions. It returns the
// contributions and the number of non-zero transfer rows consumed.
func (m *TransferMatcher) Match(ctx context.Context, pnlCurrencyID string, rows []domain.TransferRow) ([]domain.Contribution, int, error) {
	byReference := make(map[int64]map[string][]domain.TransferRow)
	count := 0

	for _, row := range rows {
		if row.Net.IsZero() {
			continue
		}
		count++

		byCurrency, ok := byReference[row.ReferenceID]
		if !ok {
			byCurrency = make(map[string][]domain.TransferRow)
			byReference[row.ReferenceID] = byCurrency
		}
		byCurrency[row.CurrencyID] = append(byCurrency[row.CurrencyID], row)
	}

	references := make([]int64, 0, len(byReference))
	for ref := range byReference {
		references = append(references, ref)
	}
	sort.Slice(references, func(i, j int) bool { return references[i] < references[j] })

	var contributions []domain.Contribution
	for _, ref := range references {
		byCurrency := byReference[ref]

		switch len(byCurrency) {
		case 1:
			// Single-currency transfer, e.g. a lock/unlock movement. No
			// exchange happened, nothing to value.
			continue

		case 2:
			cs, err := m.matchExchange(ctx, pnlCurrencyID, ref, byCurrency)
			if err != nil {
				return nil, 0, err
			}
			contributions = append(contributions, cs...)

		default:
			currencies := sortedCurrencies(byCurrency)
			return nil, 0, &domain.UnsupportedTransferError{ReferenceID: ref, CurrencyIDs: currencies}
		}
	}

	return contributions, count, nil
}

func (m *TransferMatcher) matchExchange(ctx context.Context, pnlCurrencyID string, referenceID int64, byCurrency map[string][]domain.TransferRow) ([]domain.Contribution, error) {
	m.logger.Info().Int64("reference_id", referenceID).Msg("process transfer")

	store := make(memberTotals)

	for _, currencyID := range sortedCurrencies(byCurrency) {
		fees, err := m.revenues.ListByTransfer(ctx, referenceID, currencyID)
		if err != nil {
			return nil, err
		}

		for _, fee := range fees {
			totals := store.get(fee.MemberID, currencyID)
			totals.debitFees = totals.debitFees.Add(fee.Credit)
			totals.debit = totals.debit.Sub(fee.Credit)
		}

		for _, row := range byCurrency[currencyID] {
			totals := store.get(row.MemberID, currencyID)

			if row.Net.IsPositive() {
				totals.credit = totals.credit.Add(row.Net)
				totals.amount = totals.amount.Add(row.Net)
			} else {
				totals.debit = totals.debit.Sub(row.Net)
				totals.amount = totals.amount.Sub(row.Net)
			}

			if row.MaxID > totals.liabilityID {
				totals.liabilityID = row.MaxID
			}
		}
	}

	members := make([]int64, 0, len(store))
	for memberID := range store {
		members = append(members, memberID)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	var contributions []domain.Contribution
	for _, memberID := range members {
		stats := store[memberID]

		otherCurrencyID := ""
		hasPnL := false
		for currencyID := range stats {
			if currencyID == pnlCurrencyID {
				hasPnL = true
			} else {
				otherCurrencyID = currencyID
			}
		}

		if !hasPnL || len(stats) > 2 {
			return nil, &domain.UnsupportedTransferError{ReferenceID: referenceID, CurrencyIDs: sortedCurrencies(byCurrency)}
		}

		pnlTotals := stats[pnlCurrencyID]
		if otherCurrencyID == "" || pnlTotals.amount.IsZero() {
			continue
		}

		otherTotals := stats[otherCurrencyID]
		if otherTotals.amount.IsZero() {
			continue
		}

		price := pnlTotals.amount.Div(otherTotals.amount)

		contributions = append(contributions,
			domain.Contribution{
				MemberID:      memberID,
				PnLCurrencyID: pnlCurrencyID,
				CurrencyID:    otherCurrencyID,
				Credit:        otherTotals.credit,
				CreditFees:    otherTotals.creditFees,
				CreditValue:   otherTotals.credit.Mul(price),
				Debit:         otherTotals.debit,
				DebitValue:    otherTotals.debit.Mul(price),
				DebitFees:     otherTotals.debitFees,
				LiabilityID:   otherTotals.liabilityID,
			},
			domain.Contribution{
				MemberID:      memberID,
				PnLCurrencyID: pnlCurrencyID,
				CurrencyID:    pnlCurrencyID,
				Credit:        pnlTotals.credit,
				CreditFees:    pnlTotals.creditFees,
				CreditValue:   pnlTotals.credit,
				Debit:         pnlTotals.debit,
				DebitValue:    pnlTotals.debit,
				DebitFees:     pnlTotals.debitFees,
				LiabilityID:   pnlTotals.liabilityID,
			},
		)
	}

	return contributions, nil
}

func sortedCurrencies(byCurrency map[string][]domain.TransferRow) []string {
	currencies := make([]string, 0, len(byCurrency))
	for currencyID := range byCurrency {
		currencies = append(currencies, currencyID)
	}
	sort.Strings(currencies)

	return currencies
}
