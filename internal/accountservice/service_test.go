package accountservice

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/monitoring"
	"github.com/go-corebank/corebank/pkg/breakerpkg"
	"github.com/go-corebank/corebank/pkg/errorspkg"
	"github.com/go-corebank/corebank/pkg/lockpkg"
)

// store backs both repository interfaces in memory.
type store struct {
	mu           sync.Mutex
	accounts     map[string]domain.Account
	transactions []domain.Transaction
	nextID       int64
	nextTxID     int64

	failGet         bool
	failSaveBalance bool
}

func newStore() *store {
	return &store{accounts: map[string]domain.Account{}}
}

func (s *store) Create(_ context.Context, number, holder string, balance decimal.Decimal) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[number]; ok {
		return domain.Account{}, domain.ErrAccountExists
	}

	s.nextID++
	a := domain.Account{
		ID:            s.nextID,
		AccountNumber: number,
		HolderName:    holder,
		Balance:       balance,
		CreatedAt:     time.Now().UTC(),
	}
	s.accounts[number] = a

	return a, nil
}

func (s *store) Get(_ context.Context, number string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failGet {
		return domain.Account{}, errorspkg.ErrInternal
	}

	a, ok := s.accounts[number]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (s *store) SaveBalance(_ context.Context, number string, balance decimal.Decimal) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSaveBalance {
		return domain.Account{}, errorspkg.ErrInternal
	}

	a, ok := s.accounts[number]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a.Balance = balance
	s.accounts[number] = a

	return a, nil
}

func (s *store) List(_ context.Context, limit, offset int32) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if int(offset) >= len(all) {
		return nil, nil
	}

	all = all[offset:]
	if int(limit) < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (s *store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.accounts)), nil
}

func (s *store) CreateTransaction(_ context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxID++
	t := domain.Transaction{
		ID:           s.nextTxID,
		AccountID:    arg.AccountID,
		Amount:       arg.Amount,
		Type:         arg.Type,
		Description:  arg.Description,
		BalanceAfter: arg.BalanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
	s.transactions = append(s.transactions, t)

	return t, nil
}

func (s *store) ListByAccount(_ context.Context, accountID int64, limit int32) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transaction

	for i := len(s.transactions) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		if s.transactions[i].AccountID == accountID {
			out = append(out, s.transactions[i])
		}
	}

	return out, nil
}

// ledgerView adapts the store to the TransactionRepo interface, whose Create
// appends a ledger entry rather than an account.
type ledgerView struct {
	*store
}

func (v ledgerView) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return v.store.CreateTransaction(ctx, arg)
}

type runner struct {
	store *store
}

func (r *runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	r.store.mu.Lock()
	accounts := make(map[string]domain.Account, len(r.store.accounts))
	for k, v := range r.store.accounts {
		accounts[k] = v
	}
	transactions := make([]domain.Transaction, len(r.store.transactions))
	copy(transactions, r.store.transactions)
	r.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.store.mu.Lock()
		r.store.accounts = accounts
		r.store.transactions = transactions
		r.store.mu.Unlock()

		return err
	}

	return nil
}

func (r *runner) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) PublishAsync(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

func (p *capturePublisher) published() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Event, len(p.events))
	copy(out, p.events)

	return out
}

func newTestService(s *store) (*Service, *capturePublisher) {
	metrics := monitoring.New(prometheus.NewRegistry())

	locker := lockpkg.NewMemoryLocker(lockpkg.Config{
		AcquireTimeout: time.Second,
		LeaseTime:      time.Second,
		RetryInterval:  time.Millisecond,
	}, metrics)

	publisher := &capturePublisher{}

	isTechnical := func(err error) bool { return !domain.IsBusinessError(err) }
	writeBreaker := breakerpkg.New("accountWrite", breakerpkg.Config{IsFailure: isTechnical})
	readBreaker := breakerpkg.New("accountRead", breakerpkg.Config{IsFailure: isTechnical})

	svc := New(s, ledgerView{s}, &runner{store: s}, locker, publisher, writeBreaker, readBreaker, metrics)

	return svc, publisher
}

func mustCreate(t *testing.T, svc *Service, holder string, balance int64) domain.Account {
	t.Helper()

	account, err := svc.Create(context.Background(), holder, decimal.NewFromInt(balance))
	require.NoError(t, err)

	return account
}

func TestCreate(t *testing.T) {
	s := newStore()
	svc, publisher := newTestService(s)

	account, err := svc.Create(context.Background(), "Alice", decimal.NewFromInt(100))

	require.NoError(t, err)
	require.NotEmpty(t, account.AccountNumber)
	require.Equal(t, "Alice", account.HolderName)
	require.True(t, account.Balance.Equal(decimal.NewFromInt(100)))

	events := publisher.published()
	require.Len(t, events, 1)

	created, ok := events[0].(domain.AccountCreatedEvent)
	require.True(t, ok)
	require.Equal(t, account.AccountNumber, created.AccountNumber)
	require.True(t, created.InitialBalance.Equal(account.Balance))
}

func TestCreateRejectsNegativeBalance(t *testing.T) {
	s := newStore()
	svc, publisher := newTestService(s)

	_, err := svc.Create(context.Background(), "Alice", decimal.NewFromInt(-1))

	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.Empty(t, s.accounts)
	require.Empty(t, publisher.published())
}

func TestCreateAllowsZeroBalance(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)

	account, err := svc.Create(context.Background(), "Alice", decimal.Zero)

	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())
}

func TestDeposit(t *testing.T) {
	s := newStore()
	svc, publisher := newTestService(s)
	account := mustCreate(t, svc, "Alice", 100)

	transaction, err := svc.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(40))

	require.NoError(t, err)
	require.Equal(t, domain.TypeDeposit, transaction.Type)
	require.Equal(t, account.ID, transaction.AccountID)
	require.True(t, transaction.Amount.Equal(decimal.NewFromInt(40)))
	require.True(t, transaction.BalanceAfter.Equal(decimal.NewFromInt(140)))

	saved, err := svc.Get(context.Background(), account.AccountNumber)
	require.NoError(t, err)
	require.True(t, saved.Balance.Equal(decimal.NewFromInt(140)))

	// AccountCreated followed by TransactionCreated.
	events := publisher.published()
	require.Len(t, events, 2)
	require.Equal(t, "TransactionCreated", events[1].EventType())
}

func TestWithdraw(t *testing.T) {
	testCases := []struct {
		name        string
		balance     int64
		amount      int64
		wantErr     error
		wantBalance int64
	}{
		{
			name:        "Covered",
			balance:     100,
			amount:      60,
			wantBalance: 40,
		},
		{
			name:        "ExactBalance",
			balance:     100,
			amount:      100,
			wantBalance: 0,
		},
		{
			name:        "InsufficientFunds",
			balance:     50,
			amount:      60,
			wantErr:     domain.ErrInsufficientBalance,
			wantBalance: 50,
		},
		{
			name:        "ZeroAmount",
			balance:     50,
			amount:      0,
			wantErr:     domain.ErrInvalidAmount,
			wantBalance: 50,
		},
		{
			name:        "NegativeAmount",
			balance:     50,
			amount:      -10,
			wantErr:     domain.ErrInvalidAmount,
			wantBalance: 50,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			s := newStore()
			svc, _ := newTestService(s)
			account := mustCreate(t, svc, "Alice", tc.balance)

			ledgerBefore := len(s.transactions)

			transaction, err := svc.Withdraw(context.Background(), account.AccountNumber, decimal.NewFromInt(tc.amount))

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Len(t, s.transactions, ledgerBefore, "no ledger row on a failed withdrawal")
			} else {
				require.NoError(t, err)
				require.Equal(t, domain.TypeWithdrawal, transaction.Type)
				require.True(t, transaction.BalanceAfter.Equal(decimal.NewFromInt(tc.wantBalance)))
			}

			saved, err := svc.Get(context.Background(), account.AccountNumber)
			require.NoError(t, err)
			require.True(t, saved.Balance.Equal(decimal.NewFromInt(tc.wantBalance)))
		})
	}
}

func TestMutateUnknownAccount(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)

	_, err := svc.Deposit(context.Background(), "missing", decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = svc.Withdraw(context.Background(), "missing", decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMutateStoreFaultReturnsFallback(t *testing.T) {
	s := newStore()
	svc, publisher := newTestService(s)
	account := mustCreate(t, svc, "Alice", 100)

	s.failSaveBalance = true
	publisher.events = nil

	_, err := svc.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(10))

	require.ErrorIs(t, err, domain.ErrOperationFailed)
	require.Empty(t, publisher.published(), "no event for a rolled-back mutation")

	s.failSaveBalance = false

	saved, err := svc.Get(context.Background(), account.AccountNumber)
	require.NoError(t, err)
	require.True(t, saved.Balance.Equal(decimal.NewFromInt(100)))
}

func TestGetUnknownAccount(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)

	_, err := svc.Get(context.Background(), "missing")

	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestHistory(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)
	account := mustCreate(t, svc, "Alice", 100)

	for i := 1; i <= 3; i++ {
		_, err := svc.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(int64(i)))
		require.NoError(t, err)
	}

	items, err := svc.History(context.Background(), account.AccountNumber, 2)

	require.NoError(t, err)
	require.Len(t, items, 2)

	// Most recent first.
	require.True(t, items[0].Amount.Equal(decimal.NewFromInt(3)))
	require.True(t, items[1].Amount.Equal(decimal.NewFromInt(2)))
}

func TestList(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)

	first := mustCreate(t, svc, "Alice", 10)
	mustCreate(t, svc, "Bob", 20)
	third := mustCreate(t, svc, "Carol", 30)

	page, err := svc.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, first.AccountNumber, page[0].AccountNumber)

	page, err = svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, third.AccountNumber, page[0].AccountNumber)
}

func TestReadBreakerIsolatedFromWrites(t *testing.T) {
	s := newStore()
	svc, _ := newTestService(s)
	account := mustCreate(t, svc, "Alice", 100)

	// Trip the write breaker with repeated store faults.
	s.failSaveBalance = true
	for i := 0; i < 3; i++ {
		_, err := svc.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(1))
		require.ErrorIs(t, err, domain.ErrOperationFailed)
	}
	s.failSaveBalance = false

	// Writes are short-circuited, reads still work.
	_, err := svc.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrOperationFailed)

	saved, err := svc.Get(context.Background(), account.AccountNumber)
	require.NoError(t, err)
	require.True(t, saved.Balance.Equal(decimal.NewFromInt(100)))
}
