package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pnlstats/internal/domain"
)

// ConversionResolver resolves the price of one unit of a currency in
// reporting-currency terms at a point in time. Configured paths take
// precedence over direct market lookups; paths are loaded once and never
// mutated after construction.
type ConversionResolver struct {
	paths   domain.ConversionPaths
	markets MarketRepository
	prices  TradePriceRepository
}

// NewConversionResolver creates a new ConversionResolver.
func NewConversionResolver(paths domain.ConversionPaths, markets MarketRepository, prices TradePriceRepository) *ConversionResolver {
	return &ConversionResolver{
		paths:   paths,
		markets: markets,
		prices:  prices,
	}
}

// Price returns the rate converting currencyID into pnlCurrencyID at time at.
func (r *ConversionResolver) Price(ctx context.Context, currencyID, pnlCurrencyID string, at time.Time) (decimal.Decimal, error) {
	if currencyID == pnlCurrencyID {
		return decimal.NewFromInt(1), nil
	}

	if hops, ok := r.paths[domain.PairKey(currencyID, pnlCurrencyID)]; ok {
		price := decimal.NewFromInt(1)
		for _, hop := range hops {
			hopPrice, err := r.Price(ctx, hop.BaseCurrencyID, hop.QuoteCurrencyID, at)
			if err != nil {
				return decimal.Zero, err
			}

			if hop.Reversed {
				price = price.Div(hopPrice)
			} else {
				price = price.Mul(hopPrice)
			}
		}

		return price, nil
	}

	marketID, err := r.markets.FindDirect(ctx, currencyID, pnlCurrencyID)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			return decimal.Zero, &domain.NoMarketError{BaseCurrencyID: currencyID, QuoteCurrencyID: pnlCurrencyID}
		}
		return decimal.Zero, err
	}

	price, err := r.prices.NearestAtOrBefore(ctx, marketID, at)
	if err != nil {
		if errors.Is(err, domain.ErrNoTrades) {
			return decimal.Zero, &domain.NoPriceHistoryError{MarketID: marketID}
		}
		return decimal.Zero, err
	}

	return price, nil
}
