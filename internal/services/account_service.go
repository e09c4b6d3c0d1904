package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/models"
	"github.com/bankterm/atm-terminal/pkg/repositories"
)

// TxRunner runs a function inside a single database transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// AccountService drives the account lifecycle: creation, authentication,
// balance mutation, history lookup and deletion.
type AccountService interface {
	// CreateAccount opens a new account with zero balance and returns its number.
	CreateAccount(ctx context.Context, holderName, pin string) (int64, error)
	// Authenticate returns the hydrated account on an exact number+PIN match.
	// Wrong PIN and unknown account are deliberately indistinguishable.
	Authenticate(ctx context.Context, accountNumber int64, pin string) (*models.Account, error)
	// Deposit credits the account and logs the transaction atomically.
	Deposit(ctx context.Context, account *models.Account, amount decimal.Decimal) error
	// Withdraw debits the account and logs the transaction atomically.
	Withdraw(ctx context.Context, account *models.Account, amount decimal.Decimal) error
	// History returns the most recent transactions, newest first.
	History(ctx context.Context, accountNumber int64) ([]models.Transaction, error)
	// DeleteAccount removes the account; its history cascades at the store level.
	DeleteAccount(ctx context.Context, accountNumber int64) error
}

type AccountServiceImpl struct {
	logger       *zap.Logger
	db           TxRunner
	accounts     repositories.AccountRepository
	transactions repositories.TransactionRepository
	historyLimit int
}

func NewAccountService(logger *zap.Logger, db TxRunner, accounts repositories.AccountRepository, transactions repositories.TransactionRepository, historyLimit int) AccountService {
	return &AccountServiceImpl{
		logger:       logger,
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		historyLimit: historyLimit,
	}
}

func (s AccountServiceImpl) CreateAccount(ctx context.Context, holderName, pin string) (int64, error) {
	if holderName == "" {
		return 0, pkg.NewAppError(pkg.ErrInvalidInputCode, "holder name must not be empty", nil)
	}
	if pin == "" {
		return 0, pkg.NewAppError(pkg.ErrInvalidInputCode, "PIN must not be empty", nil)
	}
	accountNumber, err := s.accounts.Create(ctx, holderName, pin)
	if err != nil {
		return 0, pkg.HandleSQLError(pkg.SessionIDFromContext(ctx), s.logger, err)
	}
	s.logger.Info("account created",
		zap.String(pkg.SessionId, pkg.SessionIDFromContext(ctx)),
		zap.Int64(pkg.AccountNumber, accountNumber),
	)
	return accountNumber, nil
}

func (s AccountServiceImpl) Authenticate(ctx context.Context, accountNumber int64, pin string) (*models.Account, error) {
	account, err := s.accounts.FindByNumberAndPIN(ctx, accountNumber, pin)
	if err != nil {
		return nil, pkg.HandleSQLError(pkg.SessionIDFromContext(ctx), s.logger, err)
	}
	s.logger.Info("login succeeded",
		zap.String(pkg.SessionId, pkg.SessionIDFromContext(ctx)),
		zap.Int64(pkg.AccountNumber, account.Number),
	)
	return &account, nil
}

func (s AccountServiceImpl) Deposit(ctx context.Context, account *models.Account, amount decimal.Decimal) error {
	before := account.Balance
	if err := account.Deposit(amount); err != nil {
		return err
	}
	return s.persistMutation(ctx, account, before, pkg.TransactionDeposit, amount)
}

func (s AccountServiceImpl) Withdraw(ctx context.Context, account *models.Account, amount decimal.Decimal) error {
	before := account.Balance
	if err := account.Withdraw(amount); err != nil {
		return err
	}
	return s.persistMutation(ctx, account, before, pkg.TransactionWithdraw, amount)
}

// persistMutation commits the balance overwrite and the transaction record in one
// database transaction, so the store never holds a balance change without its
// audit trail or the other way around. On failure the in-memory balance is
// resynchronized from the store instead of trusting the optimistic mutation.
func (s AccountServiceImpl) persistMutation(ctx context.Context, account *models.Account, before decimal.Decimal, txnType pkg.TransactionType, amount decimal.Decimal) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.accounts.UpdateBalance(ctx, tx, account.Number, account.Balance); err != nil {
			return err
		}
		return s.transactions.Append(ctx, tx, account.Number, txnType, amount)
	})
	if err == nil {
		s.logger.Info("transaction committed",
			zap.String(pkg.SessionId, pkg.SessionIDFromContext(ctx)),
			zap.Int64(pkg.AccountNumber, account.Number),
			zap.String("type", string(txnType)),
			zap.String("amount", amount.String()),
		)
		return nil
	}

	account.Balance = before
	if stored, syncErr := s.accounts.FetchBalance(ctx, account.Number); syncErr == nil {
		account.Balance = stored
	} else {
		s.logger.Warn("balance resync failed, keeping pre-mutation value",
			zap.String(pkg.SessionId, pkg.SessionIDFromContext(ctx)),
			zap.Int64(pkg.AccountNumber, account.Number),
			zap.Error(syncErr),
		)
	}
	return pkg.HandleSQLError(pkg.SessionIDFromContext(ctx), s.logger, err)
}

func (s AccountServiceImpl) History(ctx context.Context, accountNumber int64) ([]models.Transaction, error) {
	records, err := s.transactions.ListRecent(ctx, accountNumber, s.historyLimit)
	if err != nil {
		return nil, pkg.HandleSQLError(pkg.SessionIDFromContext(ctx), s.logger, err)
	}
	return records, nil
}

func (s AccountServiceImpl) DeleteAccount(ctx context.Context, accountNumber int64) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.accounts.Delete(ctx, tx, accountNumber)
	})
	if err != nil {
		return pkg.HandleSQLError(pkg.SessionIDFromContext(ctx), s.logger, err)
	}
	s.logger.Info("account deleted",
		zap.String(pkg.SessionId, pkg.SessionIDFromContext(ctx)),
		zap.Int64(pkg.AccountNumber, accountNumber),
	)
	return nil
}
