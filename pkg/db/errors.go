package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// pgError extracts the SQLSTATE and constraint from either Postgres driver.
func pgError(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// IsUniqueViolation reports whether err is a unique constraint violation. A
// non-empty constraintName must also match. SQLite errors are matched on text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := pgError(err); ok {
		return code == pgUniqueViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsTxConflict reports whether Postgres aborted the transaction because of a
// concurrent one. Rerunning the transaction from the start is safe.
func IsTxConflict(err error) bool {
	code, _, ok := pgError(err)
	return ok && (code == pgSerializationFailure || code == pgDeadlockDetected)
}
