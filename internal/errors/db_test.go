package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	err := MapDBError(context.DeadlineExceeded)
	assert.True(t, IsTimeout(err))

	err = MapDBError(context.Canceled)
	assert.True(t, IsCanceled(err))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMapDBError_InsufficientPrivilege(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.InsufficientPrivilege, Message: "permission denied for table weekly_reports"}
	err := MapDBError(pgErr)
	require.True(t, IsAccessDenied(err), "RLS denial must map to access_denied")
	assert.True(t, IsUnavailableSource(err))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "name"}
	err := MapDBError(err2app(pgErr))
	require.True(t, IsConflict(err))
	assert.Equal(t, "name", GetField(err))
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "progress"}
	err := MapDBError(pgErr)
	require.True(t, IsValidation(err))
	assert.Equal(t, "progress", GetField(err))
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	assert.True(t, IsValidation(MapDBError(pgErr)))
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.DiskFull}
	assert.True(t, IsInternal(MapDBError(pgErr)))
}

func TestMapDBError_Passthrough(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
}

// err2app simulates a pg error arriving wrapped, as pgx drivers do.
func err2app(pgErr *pgconn.PgError) error {
	return errors.Join(errors.New("exec"), pgErr)
}
