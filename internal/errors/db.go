package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances.
// It handles common database error patterns including:
// - pgx.ErrNoRows → NotFound
// - Insufficient privilege (row-level security denial) → AccessDenied
// - Unique constraint violations → Conflict
// - Check/NOT NULL constraint violations → Validation
// - Context timeouts/cancellations → Timeout/Canceled
//
// Row-level security denials are an expected outcome in this system and map
// to AccessDenied so callers can degrade instead of failing.
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Request was canceled.",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "Resource not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

// mapPgError maps PostgreSQL-specific errors to AppError instances.
func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.InsufficientPrivilege:
		return &AppError{
			Code:    ErrCodeAccessDenied,
			Message: "You do not have access to this data.",
			Cause:   pgErr,
		}
	case pgerrcode.UniqueViolation:
		return mapUniqueViolation(pgErr)
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Cannot complete operation because a referenced record does not exist.",
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return mapConstraintViolation(pgErr)
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

// mapUniqueViolation maps unique constraint violations to Conflict errors.
func mapUniqueViolation(pgErr *pgconn.PgError) error {
	appErr := &AppError{
		Code:    ErrCodeConflict,
		Message: "This value already exists. Please choose a different one.",
		Cause:   pgErr,
	}
	if pgErr.ColumnName != "" {
		appErr.Field = pgErr.ColumnName
	}
	return appErr
}

// mapConstraintViolation maps check and NOT NULL violations to Validation errors.
func mapConstraintViolation(pgErr *pgconn.PgError) error {
	appErr := &AppError{
		Code:    ErrCodeValidation,
		Message: "Invalid data. Please check your input.",
		Cause:   pgErr,
	}
	if pgErr.ColumnName != "" {
		appErr.Field = pgErr.ColumnName
		appErr.Message = "This field has an invalid value."
	}
	return appErr
}
