package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankterm/atm-terminal/pkg"
)

// Transaction maps to table `transactions`. Records are append-only: once written
// they are never updated or deleted (account deletion cascades at the store level).
type Transaction struct {
	ID            int64
	AccountNumber int64
	Type          pkg.TransactionType
	Amount        decimal.Decimal
	CreatedAt     time.Time
}
