package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrForeignKey is returned when a write references a row that does not exist.
var ErrForeignKey = errors.New("foreign key violation")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("already exists")

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// mapError converts postgres constraint violations into store errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqForeignKeyViolation:
		return ErrForeignKey
	case pqUniqueViolation:
		return ErrConflict
	default:
		return err
	}
}
