package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mock CounterRepository ---
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) FindCounter(ctx context.Context, companyID string) (*domain.TaxDocumentCounter, error) {
	args := m.Called(ctx, companyID)
	var counter *domain.TaxDocumentCounter
	if args.Get(0) != nil {
		counter = args.Get(0).(*domain.TaxDocumentCounter)
	}
	return counter, args.Error(1)
}

func (m *MockCounterRepository) FindCounterForUpdate(ctx context.Context, tx pgx.Tx, companyID string) (*domain.TaxDocumentCounter, error) {
	args := m.Called(ctx, tx, companyID)
	var counter *domain.TaxDocumentCounter
	if args.Get(0) != nil {
		counter = args.Get(0).(*domain.TaxDocumentCounter)
	}
	return counter, args.Error(1)
}

func (m *MockCounterRepository) CreateCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	args := m.Called(ctx, tx, counter)
	return args.Error(0)
}

func (m *MockCounterRepository) UpsertCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	args := m.Called(ctx, tx, counter)
	return args.Error(0)
}

// --- Test Suite ---
type NumberingServiceTestSuite struct {
	suite.Suite
	mockCounterRepo *MockCounterRepository
	mockTxManager   *MockTxManager
	companyID       string
}

func (suite *NumberingServiceTestSuite) SetupTest() {
	suite.mockCounterRepo = new(MockCounterRepository)
	suite.mockTxManager = new(MockTxManager)
	suite.companyID = uuid.NewString()
}

func (suite *NumberingServiceTestSuite) TestAllocateNumber_FirstAllocationStartsAtOne() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)

	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	// No counter row yet: it is seeded at zero, re-locked, then incremented
	suite.mockCounterRepo.On("FindCounterForUpdate", ctx, mock.Anything, suite.companyID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockCounterRepo.On("CreateCounterInTx", ctx, mock.Anything, mock.MatchedBy(func(c domain.TaxDocumentCounter) bool {
		return c.CompanyID == suite.companyID && c.LastNumber == 0 && c.CreatedBy == "system"
	})).Return(nil).Once()
	suite.mockCounterRepo.On("FindCounterForUpdate", ctx, mock.Anything, suite.companyID).Return(&domain.TaxDocumentCounter{CompanyID: suite.companyID, LastNumber: 0}, nil).Once()
	suite.mockCounterRepo.On("UpsertCounterInTx", ctx, mock.Anything, mock.MatchedBy(func(c domain.TaxDocumentCounter) bool {
		return c.CompanyID == suite.companyID && c.LastNumber == 1
	})).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(nil).Once()

	number, err := svc.AllocateNumber(ctx, suite.companyID)

	suite.Require().NoError(err)
	suite.Equal(int64(1), number)
	suite.mockCounterRepo.AssertExpectations(suite.T())
}

func (suite *NumberingServiceTestSuite) TestAllocateNumber_Increments() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)
	existing := &domain.TaxDocumentCounter{CompanyID: suite.companyID, LastNumber: 41}

	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockCounterRepo.On("FindCounterForUpdate", ctx, mock.Anything, suite.companyID).Return(existing, nil).Once()
	suite.mockCounterRepo.On("UpsertCounterInTx", ctx, mock.Anything, mock.MatchedBy(func(c domain.TaxDocumentCounter) bool {
		return c.LastNumber == 42
	})).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(nil).Once()

	number, err := svc.AllocateNumber(ctx, suite.companyID)

	suite.Require().NoError(err)
	suite.Equal(int64(42), number)
}

func (suite *NumberingServiceTestSuite) TestAllocateNumber_PersistFailureAllocatesNothing() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)
	existing := &domain.TaxDocumentCounter{CompanyID: suite.companyID, LastNumber: 7}

	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockCounterRepo.On("FindCounterForUpdate", ctx, mock.Anything, suite.companyID).Return(existing, nil).Once()
	suite.mockCounterRepo.On("UpsertCounterInTx", ctx, mock.Anything, mock.AnythingOfType("domain.TaxDocumentCounter")).Return(assert.AnError).Once()

	number, err := svc.AllocateNumber(ctx, suite.companyID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrCounterPersistFailure)
	suite.Zero(number)
	suite.mockTxManager.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *NumberingServiceTestSuite) TestAllocateNumber_CommitFailureAllocatesNothing() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)
	existing := &domain.TaxDocumentCounter{CompanyID: suite.companyID, LastNumber: 7}

	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockCounterRepo.On("FindCounterForUpdate", ctx, mock.Anything, suite.companyID).Return(existing, nil).Once()
	suite.mockCounterRepo.On("UpsertCounterInTx", ctx, mock.Anything, mock.AnythingOfType("domain.TaxDocumentCounter")).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(assert.AnError).Once()

	number, err := svc.AllocateNumber(ctx, suite.companyID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrCounterPersistFailure)
	suite.Zero(number)
}

func (suite *NumberingServiceTestSuite) TestCurrentNumber_NoAllocationsYet() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)

	suite.mockCounterRepo.On("FindCounter", ctx, suite.companyID).Return(nil, apperrors.ErrNotFound).Once()

	number, err := svc.CurrentNumber(ctx, suite.companyID)

	suite.Require().NoError(err)
	suite.Zero(number)
}

func (suite *NumberingServiceTestSuite) TestCurrentNumber_ReturnsLastAllocated() {
	ctx := context.Background()
	svc := services.NewNumberingService(suite.mockCounterRepo, suite.mockTxManager)

	suite.mockCounterRepo.On("FindCounter", ctx, suite.companyID).Return(&domain.TaxDocumentCounter{CompanyID: suite.companyID, LastNumber: 17}, nil).Once()

	number, err := svc.CurrentNumber(ctx, suite.companyID)

	suite.Require().NoError(err)
	suite.Equal(int64(17), number)
}

func TestNumberingService(t *testing.T) {
	suite.Run(t, new(NumberingServiceTestSuite))
}

// --- Concurrency ---

// fakeTx satisfies pgx.Tx; the allocator only threads it through to the repo.
type fakeTx struct {
	pgx.Tx
	done bool
}

// serialTxManager models the counter row lock with a mutex: Begin acquires,
// Commit/Rollback release. Allocations for one company serialize exactly as
// they do on the locked row in Postgres.
type serialTxManager struct {
	mu sync.Mutex
}

func (m *serialTxManager) Begin(ctx context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	return &fakeTx{}, nil
}

func (m *serialTxManager) Commit(ctx context.Context, tx pgx.Tx) error {
	tx.(*fakeTx).done = true
	m.mu.Unlock()
	return nil
}

func (m *serialTxManager) Rollback(ctx context.Context, tx pgx.Tx) error {
	ft := tx.(*fakeTx)
	if !ft.done {
		ft.done = true
		m.mu.Unlock()
	}
	return nil
}

// memCounterStore is an in-memory counter table. Access is already serialized
// by serialTxManager's lock.
type memCounterStore struct {
	counters map[string]int64
}

func (s *memCounterStore) FindCounter(ctx context.Context, companyID string) (*domain.TaxDocumentCounter, error) {
	last, ok := s.counters[companyID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &domain.TaxDocumentCounter{CompanyID: companyID, LastNumber: last}, nil
}

func (s *memCounterStore) FindCounterForUpdate(ctx context.Context, tx pgx.Tx, companyID string) (*domain.TaxDocumentCounter, error) {
	return s.FindCounter(ctx, companyID)
}

func (s *memCounterStore) CreateCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	if _, ok := s.counters[counter.CompanyID]; !ok {
		s.counters[counter.CompanyID] = counter.LastNumber
	}
	return nil
}

func (s *memCounterStore) UpsertCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	s.counters[counter.CompanyID] = counter.LastNumber
	return nil
}

func TestAllocateNumber_ConcurrentAllocationsAreDistinct(t *testing.T) {
	ctx := context.Background()
	store := &memCounterStore{counters: map[string]int64{}}
	svc := services.NewNumberingService(store, &serialTxManager{})
	companyID := uuid.NewString()

	const workers = 20
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := svc.AllocateNumber(ctx, companyID)
			assert.NoError(t, err)
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, workers)
	for number := range results {
		assert.False(t, seen[number], "number %d allocated twice", number)
		seen[number] = true
	}
	require.Len(t, seen, workers)
	// Gap-free: exactly 1..workers were handed out
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "number %d missing from sequence", i)
	}

	current, err := svc.CurrentNumber(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

// --- First-allocation race ---
//
// serialTxManager serializes whole transactions at Begin, which hides the one
// interleaving Postgres actually allows: SELECT FOR UPDATE on an absent row
// acquires no lock, so two first allocators can both observe "no counter row"
// before either inserts it. The fakes below model those locking rules — no
// lock on a missing row, inserts blocking on the primary key while a
// conflicting insert is uncommitted, writes becoming visible at commit — so
// the racing interleaving is forced and the allocator must still hand out
// distinct numbers.

type counterRow struct {
	mu        sync.Mutex // the row lock; held across a transaction
	value     int64      // guarded by rowLockCounterStore.mu
	committed bool       // guarded by rowLockCounterStore.mu
}

// rowLockTx tracks the row locks a transaction holds and its uncommitted writes.
type rowLockTx struct {
	pgx.Tx
	held    map[string]*counterRow
	pending map[string]int64
	done    bool
}

type rowLockCounterStore struct {
	mu   sync.Mutex
	rows map[string]*counterRow

	// firstMissBarrier holds every allocator that found no counter row until
	// all of them have, forcing the concurrent-first-allocation interleaving.
	firstMissBarrier *sync.WaitGroup
}

func (s *rowLockCounterStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return &rowLockTx{held: map[string]*counterRow{}, pending: map[string]int64{}}, nil
}

func (s *rowLockCounterStore) Commit(ctx context.Context, tx pgx.Tx) error {
	t := tx.(*rowLockTx)
	for companyID, row := range t.held {
		s.mu.Lock()
		if v, ok := t.pending[companyID]; ok {
			row.value = v
		}
		row.committed = true
		s.mu.Unlock()
		row.mu.Unlock()
	}
	t.held = map[string]*counterRow{}
	t.done = true
	return nil
}

func (s *rowLockCounterStore) Rollback(ctx context.Context, tx pgx.Tx) error {
	t := tx.(*rowLockTx)
	if t.done {
		return nil
	}
	for _, row := range t.held {
		row.mu.Unlock()
	}
	t.held = map[string]*counterRow{}
	t.done = true
	return nil
}

func (s *rowLockCounterStore) FindCounter(ctx context.Context, companyID string) (*domain.TaxDocumentCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[companyID]
	if row == nil || !row.committed {
		return nil, apperrors.ErrNotFound
	}
	return &domain.TaxDocumentCounter{CompanyID: companyID, LastNumber: row.value}, nil
}

func (s *rowLockCounterStore) FindCounterForUpdate(ctx context.Context, tx pgx.Tx, companyID string) (*domain.TaxDocumentCounter, error) {
	t := tx.(*rowLockTx)
	s.mu.Lock()
	row := s.rows[companyID]
	visible := row != nil && (row.committed || t.held[companyID] == row)
	s.mu.Unlock()

	if !visible {
		// No row: FOR UPDATE locks nothing.
		if s.firstMissBarrier != nil {
			s.firstMissBarrier.Done()
			s.firstMissBarrier.Wait()
		}
		return nil, apperrors.ErrNotFound
	}

	if t.held[companyID] == nil {
		row.mu.Lock()
		t.held[companyID] = row
	}

	value, ok := t.pending[companyID]
	if !ok {
		s.mu.Lock()
		value = row.value
		s.mu.Unlock()
	}
	return &domain.TaxDocumentCounter{CompanyID: companyID, LastNumber: value}, nil
}

func (s *rowLockCounterStore) CreateCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	t := tx.(*rowLockTx)
	s.mu.Lock()
	row := s.rows[counter.CompanyID]
	if row == nil {
		row = &counterRow{value: counter.LastNumber}
		row.mu.Lock() // the inserted row is exclusively ours until commit
		s.rows[counter.CompanyID] = row
		t.held[counter.CompanyID] = row
		t.pending[counter.CompanyID] = counter.LastNumber
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// Conflicting insert: wait on the primary key until the inserting
	// transaction commits, then do nothing.
	if t.held[counter.CompanyID] == nil {
		row.mu.Lock()
		t.held[counter.CompanyID] = row
	}
	return nil
}

func (s *rowLockCounterStore) UpsertCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	t := tx.(*rowLockTx)
	s.mu.Lock()
	row := s.rows[counter.CompanyID]
	s.mu.Unlock()
	if row == nil {
		return s.CreateCounterInTx(ctx, tx, counter)
	}
	// An upsert without the row lock blocks on the primary key like any
	// conflicting write, then applies DO UPDATE with the caller's value.
	if t.held[counter.CompanyID] == nil {
		row.mu.Lock()
		t.held[counter.CompanyID] = row
	}
	t.pending[counter.CompanyID] = counter.LastNumber
	return nil
}

func TestAllocateNumber_ConcurrentFirstAllocationsAreDistinct(t *testing.T) {
	ctx := context.Background()
	var barrier sync.WaitGroup
	barrier.Add(2)
	store := &rowLockCounterStore{rows: map[string]*counterRow{}, firstMissBarrier: &barrier}
	svc := services.NewNumberingService(store, store)
	companyID := uuid.NewString()

	results := make(chan int64, 2)
	for i := 0; i < 2; i++ {
		go func() {
			number, err := svc.AllocateNumber(ctx, companyID)
			assert.NoError(t, err)
			results <- number
		}()
	}
	first := <-results
	second := <-results

	require.NotEqual(t, first, second, "two concurrent first allocations received the same number")
	assert.ElementsMatch(t, []int64{1, 2}, []int64{first, second})

	current, err := svc.CurrentNumber(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}
