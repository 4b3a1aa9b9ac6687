// Package pgxutil reaches the native pgx connection underneath a
// database/sql pool. The repositories want pgx directly for its struct
// scanning while the rest of the app shares one stdlib pool.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithPgxConn checks a connection out of the pool and hands its underlying
// *pgx.Conn to fn for the duration of the call. The connection goes back to
// the pool when fn returns.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		// Close returns the connection to the pool; a failure here is
		// best-effort and must not mask fn's result.
		_ = conn.Close()
	}()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}
