package pkg

const (
	SessionId     string = "session_id"
	AccountNumber string = "account_number"
)

// TransactionType enumerates balance-affecting events.
type TransactionType string

const (
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionWithdraw TransactionType = "WITHDRAW"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionDeposit || t == TransactionWithdraw
}
