package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pnlstats/internal/domain"
)

// BatchProcessor runs one checkpointed polling pass per reporting currency:
// read the watermark, fetch the next bounded batch of liability groups,
// decompose them, pair pending transfers, and commit all resulting merges in
// a single transaction. Any error discards the whole batch so the next pass
// retries from the same watermark.
type BatchProcessor struct {
	pnlCurrencies []string
	batchSize     int
	liabilities   LiabilityRepository
	decomposer    *EventDecomposer
	matcher       *TransferMatcher
	pnl           PnLRepository
	txManager     TransactionManager
	retrier       Retrier
	observer      PassObserver
	logger        zerolog.Logger
}

// BatchProcessorParams holds dependencies for a BatchProcessor.
type BatchProcessorParams struct {
	PnLCurrencies []string
	BatchSize     int
	Liabilities   LiabilityRepository
	Decomposer    *EventDecomposer
	Matcher       *TransferMatcher
	PnL           PnLRepository
	TxManager     TransactionManager
	Retrier       Retrier
	Observer      PassObserver
	Logger        zerolog.Logger
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(params BatchProcessorParams) *BatchProcessor {
	return &BatchProcessor{
		pnlCurrencies: params.PnLCurrencies,
		batchSize:     params.BatchSize,
		liabilities:   params.Liabilities,
		decomposer:    params.Decomposer,
		matcher:       params.Matcher,
		pnl:           params.PnL,
		txManager:     params.TxManager,
		retrier:       params.Retrier,
		observer:      params.Observer,
		logger:        params.Logger,
	}
}

// ProcessAll runs one pass over every reporting currency and returns the
// total number of liability groups processed. A failing currency is logged
// and skipped; it does not stop the remaining currencies.
func (p *BatchProcessor) ProcessAll(ctx context.Context) int {
	total := 0
	for _, pnlCurrencyID := range p.pnlCurrencies {
		start := time.Now()

		count, err := p.ProcessCurrency(ctx, pnlCurrencyID)
		if err != nil {
			p.logger.Error().Err(err).Str("pnl_currency", pnlCurrencyID).Msg("failed to process currency")
			if p.observer != nil {
				p.observer.PassFailed(pnlCurrencyID)
			}
			continue
		}

		if p.observer != nil {
			p.observer.PassCompleted(pnlCurrencyID, count, time.Since(start))
		}
		total += count
	}

	return total
}

// ProcessCurrency runs one pass for a single reporting currency.
func (p *BatchProcessor) ProcessCurrency(ctx context.Context, pnlCurrencyID string) (int, error) {
	watermark, err := p.pnl.MaxLiabilityID(ctx, pnlCurrencyID)
	if err != nil {
		return 0, err
	}

	groups, err := p.liabilities.GroupedAfter(ctx, watermark, p.batchSize)
	if err != nil {
		return 0, err
	}

	var contributions []domain.Contribution
	for _, group := range groups {
		p.logger.Info().
			Int64("liability_id", group.MaxID).
			Str("kind", string(group.Kind)).
			Msg("process liability")

		cs, err := p.decomposer.Decompose(ctx, pnlCurrencyID, group)
		if err != nil {
			return 0, err
		}
		contributions = append(contributions, cs...)
	}
	count := len(groups)

	rows, err := p.liabilities.TransfersAfter(ctx, watermark)
	if err != nil {
		return 0, err
	}

	transferContributions, transferCount, err := p.matcher.Match(ctx, pnlCurrencyID, rows)
	if err != nil {
		return 0, err
	}
	contributions = append(contributions, transferContributions...)
	count += transferCount

	if len(contributions) == 0 {
		return count, nil
	}

	err = p.retrier.Retry(ctx, func() error {
		return p.commit(ctx, contributions)
	})
	if err != nil {
		return 0, err
	}

	if p.observer != nil {
		advanced := watermark
		for _, c := range contributions {
			if c.LiabilityID > advanced {
				advanced = c.LiabilityID
			}
		}
		p.observer.WatermarkAdvanced(pnlCurrencyID, advanced)
	}

	return count, nil
}

// commit merges all contributions of the batch inside one transaction.
// Contributions for the same key merge sequentially: each read sees the
// rows written earlier in the same transaction.
func (p *BatchProcessor) commit(ctx context.Context, contributions []domain.Contribution) error {
	tx, err := p.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, contribution := range contributions {
		record, err := p.pnl.GetForUpdate(ctx, tx, contribution.Key())
		switch {
		case errors.Is(err, domain.ErrPnLRecordNotFound):
			record = domain.NewPnLRecord(contribution)
		case err != nil:
			return err
		default:
			record.Merge(contribution)
		}

		record.UpdatedAt = time.Now().UTC()
		if err := p.pnl.Upsert(ctx, tx, record); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
