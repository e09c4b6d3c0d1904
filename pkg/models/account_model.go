package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankterm/atm-terminal/pkg"
)

// Account maps to table `accounts`.
// Balance is a decimal in major units; arithmetic never touches floats.
type Account struct {
	Number     int64
	HolderName string
	PIN        string
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Deposit increases the balance by amount. The mutation is in-memory only;
// persisting it is the caller's responsibility.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkg.NewAppError(pkg.ErrInvalidAmountCode, "deposit amount must be greater than zero", nil)
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw decreases the balance by amount. Fails on non-positive amounts and on
// insufficient funds, leaving the balance untouched; the balance never goes negative.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkg.NewAppError(pkg.ErrInvalidAmountCode, "withdrawal amount must be greater than zero", nil)
	}
	if amount.GreaterThan(a.Balance) {
		return pkg.NewAppError(pkg.ErrInsufficientFundsCode, "insufficient balance", pkg.ErrInsufficientBalance)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}
