package pkg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Reusable errors
var (
	SqlErrForeignKeyViolation = errors.New("foreign key violation")
	SqlError                  = errors.New("sql error")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)

// ErrorCode defines a standardized error code
type ErrorCode struct {
	Code    string
	Message string // default message
}

var (
	// Generic app
	ErrInvalidInputCode   = ErrorCode{Code: "APP_INVALID_INPUT", Message: "invalid input"}
	ErrInternalCode       = ErrorCode{Code: "APP_INTERNAL", Message: "internal error"}
	ErrRecordNotFoundCode = ErrorCode{Code: "APP_NOT_FOUND", Message: "record not found"}

	// Business/domain rules
	ErrInvalidAmountCode     = ErrorCode{Code: "BUSINESS_INVALID_AMOUNT", Message: "amount must be greater than zero"}
	ErrInsufficientFundsCode = ErrorCode{Code: "BUSINESS_INSUFFICIENT_FUNDS", Message: "insufficient balance"}

	// SQL layer
	ErrStoreUnavailableCode = ErrorCode{Code: "SQL_STORE_UNAVAILABLE", Message: "store unavailable"}
	ErrSQLUnknownCode       = ErrorCode{Code: "SQL_UNKNOWN", Message: "sql error"}
	ErrSQLConflictCode      = ErrorCode{Code: "SQL_CONFLICT", Message: "sql conflict"}
	ErrSQLDuplicateCode     = ErrorCode{Code: "SQL_DUPLICATE", Message: "duplicate record"}
	ErrSQLInvalidInput      = ErrorCode{Code: "SQL_INVALID_INPUT", Message: "invalid input"}
)

type AppError struct {
	Code    ErrorCode
	Message string // public-facing message
	Cause   error  // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, msg string, cause error) error {
	return AppError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr AppError
	return errors.As(err, &appErr) && appErr.Code.Code == code.Code
}

// UserMessage extracts the public-facing message to print on the terminal.
// Unknown errors collapse to the generic internal message so internals never leak.
func UserMessage(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternalCode.Message
}

// HandleSQLError maps pg errors -> AppError with proper codes
func HandleSQLError(sessionId string, logger *zap.Logger, err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("sql error : no records found", zap.String(SessionId, sessionId))
		return NewAppError(ErrRecordNotFoundCode, "no records found", err)
	}
	if !errors.As(err, &pgErr) {
		// Anything below the pg protocol (dial failure, closed pool, context timeout)
		// counts as the store being unreachable.
		logger.Error("sql error : store unavailable", zap.String(SessionId, sessionId), zap.Error(err))
		return NewAppError(ErrStoreUnavailableCode, "store unavailable", err)
	}

	// Log rich pg error context
	logger.Error("sql error",
		zap.String(SessionId, sessionId),
		zap.String("code", pgErr.Code),
		zap.String("message", pgErr.Message),
		zap.String("detail", pgErr.Detail),
		zap.String("schema", pgErr.SchemaName),
		zap.String("table", pgErr.TableName),
		zap.String("column", pgErr.ColumnName),
		zap.String("constraint", pgErr.ConstraintName),
	)

	switch pgErr.Code {
	case "23505": // unique_violation
		return NewAppError(ErrSQLDuplicateCode, "duplicate value violates unique constraint", SqlError)
	case "23503": // foreign_key_violation
		return NewAppError(ErrSQLConflictCode, "foreign key violation", SqlErrForeignKeyViolation)
	case "23514": // check_violation Ex: negative balance rejected by the store
		return NewAppError(ErrSQLConflictCode, "check constraint violation", SqlError)
	case "22P02": // invalid_text_representation
		return NewAppError(ErrSQLInvalidInput, "invalid input syntax", SqlError)
	case "22001": // string_data_right_truncation
		return NewAppError(ErrSQLInvalidInput, "value too long for column", SqlError)
	case "22003": // numeric_value_out_of_range
		return NewAppError(ErrSQLInvalidInput, "numeric value out of range", SqlError)
	default:
		return NewAppError(ErrSQLUnknownCode, "sql error", SqlError)
	}
}
