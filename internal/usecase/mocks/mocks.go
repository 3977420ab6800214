package mocks

import (
	"context"
	"sync"

	"github.com/iho/pnlstats/internal/domain"
	"github.com/iho/pnlstats/internal/usecase"
)

// MockLiabilityRepository is a mock implementation of LiabilityRepository.
type MockLiabilityRepository struct {
	Groups    []domain.LiabilityGroup
	Transfers []domain.TransferRow

	GroupedAfterFunc   func(ctx context.Context, afterID int64, limit int) ([]domain.LiabilityGroup, error)
	TransfersAfterFunc func(ctx context.Context, afterID int64) ([]domain.TransferRow, error)
}

func (m *MockLiabilityRepository) GroupedAfter(ctx context.Context, afterID int64, limit int) ([]domain.LiabilityGroup, error) {
	if m.GroupedAfterFunc != nil {
		return m.GroupedAfterFunc(ctx, afterID, limit)
	}

	var out []domain.LiabilityGroup
	for _, g := range m.Groups {
		if g.MaxID > afterID && len(out) < limit {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MockLiabilityRepository) TransfersAfter(ctx context.Context, afterID int64) ([]domain.TransferRow, error) {
	if m.TransfersAfterFunc != nil {
		return m.TransfersAfterFunc(ctx, afterID)
	}

	var out []domain.TransferRow
	for _, row := range m.Transfers {
		if row.MaxID > afterID {
			out = append(out, row)
		}
	}
	return out, nil
}

// MockPnLRepository is an in-memory mock implementation of PnLRepository.
type MockPnLRepository struct {
	mu      sync.RWMutex
	records map[domain.PnLKey]*domain.PnLRecord
	Upserts int

	MaxLiabilityIDFunc func(ctx context.Context, pnlCurrencyID string) (int64, error)
	GetForUpdateFunc   func(ctx context.Context, tx usecase.Transaction, key domain.PnLKey) (*domain.PnLRecord, error)
	UpsertFunc         func(ctx context.Context, tx usecase.Transaction, record *domain.PnLRecord) error
}

func NewMockPnLRepository() *MockPnLRepository {
	return &MockPnLRepository{
		records: make(map[domain.PnLKey]*domain.PnLRecord),
	}
}

func (m *MockPnLRepository) MaxLiabilityID(ctx context.Context, pnlCurrencyID string) (int64, error) {
	if m.MaxLiabilityIDFunc != nil {
		return m.MaxLiabilityIDFunc(ctx, pnlCurrencyID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var max int64
	for key, rec := range m.records {
		if key.PnLCurrencyID == pnlCurrencyID && rec.LastLiabilityID > max {
			max = rec.LastLiabilityID
		}
	}
	return max, nil
}

func (m *MockPnLRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, key domain.PnLKey) (*domain.PnLRecord, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, domain.ErrPnLRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockPnLRepository) Upsert(ctx context.Context, tx usecase.Transaction, record *domain.PnLRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, record)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *record
	m.records[domain.PnLKey{
		MemberID:      record.MemberID,
		PnLCurrencyID: record.PnLCurrencyID,
		CurrencyID:    record.CurrencyID,
	}] = &cp
	m.Upserts++
	return nil
}

// Get returns the stored record for a key, or nil.
func (m *MockPnLRepository) Get(key domain.PnLKey) *domain.PnLRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Len returns the number of stored records.
func (m *MockPnLRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Commits   int
	Rollbacks int

	CommitFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.Commits++
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	t.Rollbacks++
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	Tx     *MockTransaction
	Begins int

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{Tx: &MockTransaction{}}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.Begins++
	return m.Tx, nil
}

// PassthroughRetrier runs the operation once without retrying.
type PassthroughRetrier struct{}

func (PassthroughRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}

// MockRunnerLock is a mock implementation of RunnerLock.
type MockRunnerLock struct {
	mu       sync.Mutex
	held     map[string]bool
	Acquires int
	Releases int

	AcquireFunc func(ctx context.Context, name string) (bool, error)
}

func NewMockRunnerLock() *MockRunnerLock {
	return &MockRunnerLock{held: make(map[string]bool)}
}

func (m *MockRunnerLock) Acquire(ctx context.Context, name string) (bool, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Acquires++
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockRunnerLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Releases++
	delete(m.held, name)
	return nil
}
