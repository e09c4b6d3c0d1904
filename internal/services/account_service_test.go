package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/models"
)

// fakeTxRunner stands in for the database transaction boundary. When failWith is
// set the whole unit fails, mirroring a rollback: none of the writes apply.
type fakeTxRunner struct {
	failWith error
	calls    int
}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	f.calls++
	if f.failWith != nil {
		return f.failWith
	}
	return fn(ctx, nil)
}

type fakeAccountStore struct {
	nextNumber int64
	accounts   map[int64]models.Account
	failFetch  bool
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[int64]models.Account)}
}

func (f *fakeAccountStore) Create(_ context.Context, holderName, pin string) (int64, error) {
	f.nextNumber++
	f.accounts[f.nextNumber] = models.Account{
		Number:     f.nextNumber,
		HolderName: holderName,
		PIN:        pin,
		Balance:    decimal.Zero,
	}
	return f.nextNumber, nil
}

func (f *fakeAccountStore) FindByNumberAndPIN(_ context.Context, accountNumber int64, pin string) (models.Account, error) {
	account, ok := f.accounts[accountNumber]
	if !ok || account.PIN != pin {
		return models.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (f *fakeAccountStore) FetchBalance(_ context.Context, accountNumber int64) (decimal.Decimal, error) {
	if f.failFetch {
		return decimal.Zero, errors.New("store unreachable")
	}
	account, ok := f.accounts[accountNumber]
	if !ok {
		return decimal.Zero, pgx.ErrNoRows
	}
	return account.Balance, nil
}

func (f *fakeAccountStore) UpdateBalance(_ context.Context, _ pgx.Tx, accountNumber int64, balance decimal.Decimal) error {
	account, ok := f.accounts[accountNumber]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Balance = balance
	f.accounts[accountNumber] = account
	return nil
}

func (f *fakeAccountStore) Delete(_ context.Context, _ pgx.Tx, accountNumber int64) error {
	if _, ok := f.accounts[accountNumber]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.accounts, accountNumber)
	return nil
}

type fakeTransactionStore struct {
	records []models.Transaction
}

func (f *fakeTransactionStore) Append(_ context.Context, _ pgx.Tx, accountNumber int64, txnType pkg.TransactionType, amount decimal.Decimal) error {
	f.records = append(f.records, models.Transaction{
		ID:            int64(len(f.records) + 1),
		AccountNumber: accountNumber,
		Type:          txnType,
		Amount:        amount,
		CreatedAt:     time.Now().Add(time.Duration(len(f.records)) * time.Millisecond),
	})
	return nil
}

func (f *fakeTransactionStore) ListRecent(_ context.Context, accountNumber int64, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].AccountNumber == accountNumber {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func newService(runner *fakeTxRunner, accounts *fakeAccountStore, txns *fakeTransactionStore) AccountService {
	return NewAccountService(zap.NewNop(), runner, accounts, txns, 5)
}

func TestCreateAccount_ThenAuthenticate_RoundTrip(t *testing.T) {
	accounts := newFakeAccountStore()
	svc := newService(&fakeTxRunner{}, accounts, &fakeTransactionStore{})
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)
	require.NotZero(t, number)

	account, err := svc.Authenticate(ctx, number, "1234")
	require.NoError(t, err)
	assert.Equal(t, "Alice", account.HolderName)
	assert.True(t, account.Balance.Equal(decimal.Zero))
}

func TestCreateAccount_RejectsEmptyInput(t *testing.T) {
	svc := newService(&fakeTxRunner{}, newFakeAccountStore(), &fakeTransactionStore{})

	_, err := svc.CreateAccount(context.Background(), "", "1234")
	assert.True(t, pkg.IsCode(err, pkg.ErrInvalidInputCode))

	_, err = svc.CreateAccount(context.Background(), "Alice", "")
	assert.True(t, pkg.IsCode(err, pkg.ErrInvalidInputCode))
}

func TestAuthenticate_WrongPIN_IsNotFound(t *testing.T) {
	accounts := newFakeAccountStore()
	svc := newService(&fakeTxRunner{}, accounts, &fakeTransactionStore{})
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)

	// Wrong PIN and nonexistent account are indistinguishable.
	_, err = svc.Authenticate(ctx, number, "0000")
	assert.True(t, pkg.IsCode(err, pkg.ErrRecordNotFoundCode))

	_, err = svc.Authenticate(ctx, number+99, "1234")
	assert.True(t, pkg.IsCode(err, pkg.ErrRecordNotFoundCode))
}

func TestDeposit_PersistsBalanceAndRecordTogether(t *testing.T) {
	accounts := newFakeAccountStore()
	txns := &fakeTransactionStore{}
	runner := &fakeTxRunner{}
	svc := newService(runner, accounts, txns)
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)
	account, err := svc.Authenticate(ctx, number, "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Deposit(ctx, account, decimal.RequireFromString("100")))

	assert.True(t, account.Balance.Equal(decimal.RequireFromString("100")))
	assert.True(t, accounts.accounts[number].Balance.Equal(decimal.RequireFromString("100")))
	require.Len(t, txns.records, 1)
	assert.Equal(t, pkg.TransactionDeposit, txns.records[0].Type)
	assert.Equal(t, 1, runner.calls)
}

func TestDeposit_ValidationFailureSkipsPersistence(t *testing.T) {
	runner := &fakeTxRunner{}
	svc := newService(runner, newFakeAccountStore(), &fakeTransactionStore{})
	account := &models.Account{Number: 1, Balance: decimal.RequireFromString("10")}

	err := svc.Deposit(context.Background(), account, decimal.Zero)

	assert.True(t, pkg.IsCode(err, pkg.ErrInvalidAmountCode))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("10")))
	assert.Zero(t, runner.calls, "no transaction should be attempted for invalid amounts")
}

func TestWithdraw_InsufficientFundsSkipsPersistence(t *testing.T) {
	runner := &fakeTxRunner{}
	svc := newService(runner, newFakeAccountStore(), &fakeTransactionStore{})
	account := &models.Account{Number: 1, Balance: decimal.RequireFromString("60")}

	err := svc.Withdraw(context.Background(), account, decimal.RequireFromString("1000"))

	assert.True(t, pkg.IsCode(err, pkg.ErrInsufficientFundsCode))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("60")))
	assert.Zero(t, runner.calls)
}

func TestDeposit_StoreFailureResyncsBalanceFromStore(t *testing.T) {
	accounts := newFakeAccountStore()
	txns := &fakeTransactionStore{}
	svc := newService(&fakeTxRunner{}, accounts, txns)
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)
	account, err := svc.Authenticate(ctx, number, "1234")
	require.NoError(t, err)
	require.NoError(t, svc.Deposit(ctx, account, decimal.RequireFromString("25")))

	// Now break the transaction boundary: the deposit must not stick in memory.
	failing := newService(&fakeTxRunner{failWith: errors.New("connection refused")}, accounts, txns)
	err = failing.Deposit(ctx, account, decimal.RequireFromString("100"))

	assert.True(t, pkg.IsCode(err, pkg.ErrStoreUnavailableCode))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("25")),
		"in-memory balance must match the store after a failed persistence attempt")
	assert.Len(t, txns.records, 1, "no record may be appended for an uncommitted deposit")
}

func TestDeposit_StoreFailureAndResyncFailureKeepPreMutationBalance(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.failFetch = true
	svc := newService(&fakeTxRunner{failWith: errors.New("connection refused")}, accounts, &fakeTransactionStore{})
	account := &models.Account{Number: 7, Balance: decimal.RequireFromString("40")}

	err := svc.Deposit(context.Background(), account, decimal.RequireFromString("10"))

	assert.Error(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("40")))
}

func TestHistory_NewestFirstCappedAtLimit(t *testing.T) {
	accounts := newFakeAccountStore()
	txns := &fakeTransactionStore{}
	svc := newService(&fakeTxRunner{}, accounts, txns)
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)
	account, err := svc.Authenticate(ctx, number, "1234")
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, svc.Deposit(ctx, account, decimal.RequireFromString("10")))
	}

	records, err := svc.History(ctx, number)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt.After(records[i-1].CreatedAt), "history must be newest first")
	}
}

func TestDeleteAccount_RemovesAccount(t *testing.T) {
	accounts := newFakeAccountStore()
	svc := newService(&fakeTxRunner{}, accounts, &fakeTransactionStore{})
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, number))

	_, err = svc.Authenticate(ctx, number, "1234")
	assert.True(t, pkg.IsCode(err, pkg.ErrRecordNotFoundCode))
}

// Full walkthrough of the account lifecycle: create, login, deposit, withdraw,
// overdraw attempt, history.
func TestAccountLifecycle_Scenario(t *testing.T) {
	accounts := newFakeAccountStore()
	txns := &fakeTransactionStore{}
	svc := newService(&fakeTxRunner{}, accounts, txns)
	ctx := context.Background()

	number, err := svc.CreateAccount(ctx, "Alice", "1234")
	require.NoError(t, err)

	account, err := svc.Authenticate(ctx, number, "1234")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.Zero))

	require.NoError(t, svc.Deposit(ctx, account, decimal.RequireFromString("100")))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("100")))

	require.NoError(t, svc.Withdraw(ctx, account, decimal.RequireFromString("40")))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("60")))

	err = svc.Withdraw(ctx, account, decimal.RequireFromString("1000"))
	assert.True(t, pkg.IsCode(err, pkg.ErrInsufficientFundsCode))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("60")))

	records, err := svc.History(ctx, number)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, pkg.TransactionWithdraw, records[0].Type)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, pkg.TransactionDeposit, records[1].Type)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("100")))
}
