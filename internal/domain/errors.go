package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Lookup errors
	ErrTradeNotFound      = errors.New("trade not found")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrWithdrawNotFound   = errors.New("withdraw not found")
	ErrAdjustmentNotFound = errors.New("adjustment not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrMarketNotFound     = errors.New("market not found")
	ErrNoTrades           = errors.New("no trades on market")
	ErrPnLRecordNotFound  = errors.New("pnl record not found")
)

// NoMarketError indicates there is no direct market between two currencies
// and no conversion path is configured for the pair.
type NoMarketError struct {
	BaseCurrencyID  string
	QuoteCurrencyID string
}

func (e *NoMarketError) Error() string {
	return fmt.Sprintf("there is no market %s/%s", e.BaseCurrencyID, e.QuoteCurrencyID)
}

// NoPriceHistoryError indicates a market exists but carries no trade
// at or before the requested time.
type NoPriceHistoryError struct {
	MarketID string
}

func (e *NoPriceHistoryError) Error() string {
	return fmt.Sprintf("there are no trades on market %s", e.MarketID)
}

// UnsupportedTransferError indicates a transfer whose currency composition
// cannot be folded into the cost basis: more than two currencies, or two
// currencies neither of which is the reporting currency.
type UnsupportedTransferError struct {
	ReferenceID int64
	CurrencyIDs []string
}

func (e *UnsupportedTransferError) Error() string {
	return fmt.Sprintf("transfer %d spans unsupported currencies [%s]",
		e.ReferenceID, strings.Join(e.CurrencyIDs, ","))
}

// ConfigParseError indicates a malformed conversion-path configuration
// string. It is fatal at startup and never retried.
type ConfigParseError struct {
	Input  string
	Reason string
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("failed to parse conversion paths: %s: %q", e.Reason, e.Input)
}
