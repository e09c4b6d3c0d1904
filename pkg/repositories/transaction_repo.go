package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/database"
	"github.com/bankterm/atm-terminal/pkg/models"
)

// TransactionRepository defines the interface for the append-only transaction log.
type TransactionRepository interface {
	// Append writes one transaction record inside tx. The caller runs Append in
	// the same transaction as the balance update so the two commit or roll back
	// together.
	Append(ctx context.Context, tx pgx.Tx, accountNumber int64, txnType pkg.TransactionType, amount decimal.Decimal) error
	// ListRecent returns at most limit records for the account, newest first.
	ListRecent(ctx context.Context, accountNumber int64, limit int) ([]models.Transaction, error)
}

type TransactionRepositoryImpl struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (t TransactionRepositoryImpl) Append(ctx context.Context, tx pgx.Tx, accountNumber int64, txnType pkg.TransactionType, amount decimal.Decimal) error {
	if !txnType.Valid() {
		return errors.New("unknown transaction type: " + string(txnType))
	}
	_, err := tx.Exec(ctx, `INSERT INTO transactions (account_number, type, amount, created_at)
		VALUES ($1, $2, $3, NOW())`,
		accountNumber, string(txnType), amount)
	return err
}

func (t TransactionRepositoryImpl) ListRecent(ctx context.Context, accountNumber int64, limit int) ([]models.Transaction, error) {
	rows, err := t.db.Query(ctx, `SELECT id, account_number, type, amount, created_at
		FROM transactions
		WHERE account_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		accountNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Transaction
	for rows.Next() {
		var record models.Transaction
		if err = rows.Scan(
			&record.ID,
			&record.AccountNumber,
			&record.Type,
			&record.Amount,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
