package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bankterm/atm-terminal/pkg/database"
	"github.com/bankterm/atm-terminal/pkg/models"
)

// AccountRepository defines the interface for account persistence.
type AccountRepository interface {
	// Create inserts a new account with zero balance and returns the
	// store-generated account number.
	Create(ctx context.Context, holderName, pin string) (int64, error)
	// FindByNumberAndPIN hydrates the account matching both credentials.
	// A wrong PIN and a missing account are indistinguishable: both surface
	// as pgx.ErrNoRows.
	FindByNumberAndPIN(ctx context.Context, accountNumber int64, pin string) (models.Account, error)
	// FetchBalance reads the stored balance, used to resynchronize in-memory
	// state after a failed write.
	FetchBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error)
	// UpdateBalance overwrites the stored balance inside tx.
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountNumber int64, balance decimal.Decimal) error
	// Delete removes the account row inside tx; transaction history cascades.
	Delete(ctx context.Context, tx pgx.Tx, accountNumber int64) error
}

type AccountRepositoryImpl struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

func (a AccountRepositoryImpl) Create(ctx context.Context, holderName, pin string) (int64, error) {
	var accountNumber int64
	err := a.db.QueryRow(ctx, `INSERT INTO accounts (holder_name, pin, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		RETURNING account_number`,
		holderName, pin).Scan(&accountNumber)
	return accountNumber, err
}

func (a AccountRepositoryImpl) FindByNumberAndPIN(ctx context.Context, accountNumber int64, pin string) (models.Account, error) {
	var account models.Account
	err := a.db.QueryRow(ctx, `SELECT account_number, holder_name, pin, balance, created_at, updated_at
		FROM accounts WHERE account_number = $1 AND pin = $2`,
		accountNumber, pin).Scan(
		&account.Number, &account.HolderName, &account.PIN, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	return account, err
}

func (a AccountRepositoryImpl) FetchBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := a.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_number = $1`,
		accountNumber).Scan(&balance)
	return balance, err
}

func (a AccountRepositoryImpl) UpdateBalance(ctx context.Context, tx pgx.Tx, accountNumber int64, balance decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE account_number = $2`,
		balance, accountNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (a AccountRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, accountNumber int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE account_number = $1`, accountNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
