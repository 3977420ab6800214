package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// EventDecomposer converts one liability group into per-currency
// contributions, pricing each side in the reporting currency.
type EventDecomposer struct {
	trades      TradeRepository
	deposits    DepositRepository
	withdraws   WithdrawRepository
	adjustments AdjustmentRepository
	members     MemberResolver
	resolver    *ConversionResolver
	logger      zerolog.Logger
}

// NewEventDecomposer creates a new EventDecomposer.
func NewEventDecomposer(
	trades TradeRepository,
	deposits DepositRepository,
	withdraws WithdrawRepository,
	adjustments AdjustmentRepository,
	members MemberResolver,
	resolver *ConversionResolver,
	logger zerolog.Logger,
) *EventDecomposer {
	return &EventDecomposer{
		trades:      trades,
		deposits:    deposits,
		withdraws:   withdraws,
		adjustments: adjustments,
		members:     members,
		resolver:    resolver,
		logger:      logger,
	}
}

// Decompose dispatches a liability group to its event-kind handler.
// Transfer groups are paired separately by the TransferMatcher and are not
// valid input here.
func (d *EventDecomposer) Decompose(ctx context.Context, pnlCurrencyID string, group domain.LiabilityGroup) ([]domain.Contribution, error) {
	switch group.Kind {
	case domain.EventTrade:
		trade, err := d.trades.GetByID(ctx, group.ReferenceID)
		if err != nil {
			return nil, err
		}

		maker, err := d.decomposeOrder(ctx, pnlCurrencyID, group.MaxID, trade, &trade.MakerOrder)
		if err != nil {
			return nil, err
		}

		taker, err := d.decomposeOrder(ctx, pnlCurrencyID, group.MaxID, trade, &trade.TakerOrder)
		if err != nil {
			return nil, err
		}

		return append(maker, taker...), nil

	case domain.EventDeposit:
		deposit, err := d.deposits.GetByID(ctx, group.ReferenceID)
		if err != nil {
			return nil, err
		}
		return d.decomposeDeposit(ctx, pnlCurrencyID, group.MaxID, deposit)

	case domain.EventWithdraw:
		withdraw, err := d.withdraws.GetByID(ctx, group.ReferenceID)
		if err != nil {
			return nil, err
		}
		return d.decomposeWithdraw(ctx, pnlCurrencyID, group.MaxID, withdraw)

	case domain.EventAdjustment:
		adjustment, err := d.adjustments.GetByID(ctx, group.ReferenceID)
		if err != nil {
			return nil, err
		}
		return d.decomposeAdjustment(ctx, pnlCurrencyID, group.MaxID, adjustment)

	default:
		return nil, fmt.Errorf("unrecognized event kind %q for liability %d", group.Kind, group.MaxID)
	}
}

// decomposeOrder produces two contributions for one order leg of a trade:
// a credit in the income currency and a debit in the outcome currency. When
// the trade's quote currency is the reporting currency, values come from the
// trade price itself; otherwise both legs are priced by the resolver at the
// trade time.
func (d *EventDecomposer) decomposeOrder(ctx context.Context, pnlCurrencyID string, liabilityID int64, trade *domain.Trade, order *domain.Order) ([]domain.Contribution, error) {
	d.logger.Info().Int64("order_id", order.ID).Int64("trade_id", trade.ID).Msg("process order")

	var totalCredit, totalCreditFees, totalDebit decimal.Decimal
	if order.Side == domain.SideBuy {
		totalCreditFees = trade.Amount.Mul(order.FeeRate)
		totalCredit = trade.Amount.Sub(totalCreditFees)
		totalDebit = trade.Total
	} else {
		totalCreditFees = trade.Total.Mul(order.FeeRate)
		totalCredit = trade.Total.Sub(totalCreditFees)
		totalDebit = trade.Amount
	}

	incomeCurrencyID := trade.IncomeCurrency(order)
	outcomeCurrencyID := trade.OutcomeCurrency(order)

	var totalCreditValue, totalDebitValue decimal.Decimal
	if trade.QuoteCurrencyID == pnlCurrencyID {
		if order.Side == domain.SideBuy {
			totalCreditValue = totalCredit.Mul(trade.Price)
			totalDebitValue = totalDebit
		} else {
			totalCreditValue = totalCredit
			totalDebitValue = totalDebit.Mul(trade.Price)
		}
	} else {
		incomePrice, err := d.resolver.Price(ctx, incomeCurrencyID, pnlCurrencyID, trade.CreatedAt)
		if err != nil {
			return nil, err
		}
		totalCreditValue = totalCredit.Mul(incomePrice)

		outcomePrice, err := d.resolver.Price(ctx, outcomeCurrencyID, pnlCurrencyID, trade.CreatedAt)
		if err != nil {
			return nil, err
		}
		totalDebitValue = totalDebit.Mul(outcomePrice)
	}

	return []domain.Contribution{
		{
			MemberID:      order.MemberID,
			PnLCurrencyID: pnlCurrencyID,
			CurrencyID:    incomeCurrencyID,
			Credit:        totalCredit,
			CreditFees:    totalCreditFees,
			CreditValue:   totalCreditValue,
			LiabilityID:   liabilityID,
		},
		{
			MemberID:      order.MemberID,
			PnLCurrencyID: pnlCurrencyID,
			CurrencyID:    outcomeCurrencyID,
			Debit:         totalDebit,
			DebitValue:    totalDebitValue,
			LiabilityID:   liabilityID,
		},
	}, nil
}

func (d *EventDecomposer) decomposeDeposit(ctx context.Context, pnlCurrencyID string, liabilityID int64, deposit *domain.Deposit) ([]domain.Contribution, error) {
	d.logger.Info().Int64("deposit_id", deposit.ID).Msg("process deposit")

	price, err := d.resolver.Price(ctx, deposit.CurrencyID, pnlCurrencyID, deposit.CreatedAt)
	if err != nil {
		return nil, err
	}

	return []domain.Contribution{{
		MemberID:      deposit.MemberID,
		PnLCurrencyID: pnlCurrencyID,
		CurrencyID:    deposit.CurrencyID,
		Credit:        deposit.Amount,
		CreditFees:    deposit.Fee,
		CreditValue:   deposit.Amount.Mul(price),
		LiabilityID:   liabilityID,
	}}, nil
}

// decomposeWithdraw values the withdrawal plus its fee at the resolved
// price; the fee lands on the debit side, unlike deposits.
func (d *EventDecomposer) decomposeWithdraw(ctx context.Context, pnlCurrencyID string, liabilityID int64, withdraw *domain.Withdraw) ([]domain.Contribution, error) {
	d.logger.Info().Int64("withdraw_id", withdraw.ID).Msg("process withdraw")

	price, err := d.resolver.Price(ctx, withdraw.CurrencyID, pnlCurrencyID, withdraw.CreatedAt)
	if err != nil {
		return nil, err
	}

	return []domain.Contribution{{
		MemberID:      withdraw.MemberID,
		PnLCurrencyID: pnlCurrencyID,
		CurrencyID:    withdraw.CurrencyID,
		Debit:         withdraw.Amount,
		DebitValue:    withdraw.Amount.Add(withdraw.Fee).Mul(price),
		DebitFees:     withdraw.Fee,
		LiabilityID:   liabilityID,
	}}, nil
}

// decomposeAdjustment routes a signed amount to the credit or debit side.
// The affected member comes from the adjustment's receiving account number.
func (d *EventDecomposer) decomposeAdjustment(ctx context.Context, pnlCurrencyID string, liabilityID int64, adjustment *domain.Adjustment) ([]domain.Contribution, error) {
	d.logger.Info().Int64("adjustment_id", adjustment.ID).Msg("process adjustment")

	price, err := d.resolver.Price(ctx, adjustment.CurrencyID, pnlCurrencyID, adjustment.CreatedAt)
	if err != nil {
		return nil, err
	}

	memberID, err := d.members.MemberIDByAccountNumber(ctx, adjustment.ReceivingAccountNumber)
	if err != nil {
		return nil, err
	}

	contribution := domain.Contribution{
		MemberID:      memberID,
		PnLCurrencyID: pnlCurrencyID,
		CurrencyID:    adjustment.CurrencyID,
		LiabilityID:   liabilityID,
	}

	if adjustment.Amount.IsNegative() {
		contribution.Debit = adjustment.Amount.Neg()
		contribution.DebitValue = contribution.Debit.Mul(price)
	} else {
		contribution.Credit = adjustment.Amount
		contribution.CreditValue = contribution.Credit.Mul(price)
	}

	return []domain.Contribution{contribution}, nil
}
