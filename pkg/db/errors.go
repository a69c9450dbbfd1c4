package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on the named constraint. Both postgres drivers and sqlite (used
// in tests) are recognised.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	state, name, ok := sqlState(err)
	if ok {
		return state == sqlStateUniqueViolation && (constraint == "" || name == constraint)
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}

func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
