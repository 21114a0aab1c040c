package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a registry row does not exist.
var ErrNotFound = errors.New("not found")

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation, optionally of a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
