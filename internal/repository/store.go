package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zoombid/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStatusChanged is returned by conditional status updates when the
	// row no longer holds the expected status
	ErrStatusChanged = errors.New("status changed concurrently")
)

// DBTX is the subset of *sql.DB the repositories use
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// bounded applies the store operation timeout to ctx
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError marks a driver failure as a store level error
func storeError(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrStore, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// foreignKeyViolation reports whether err is a foreign key violation and
// which constraint was violated
func foreignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// expectOneRow converts a zero row result into notFound
func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
