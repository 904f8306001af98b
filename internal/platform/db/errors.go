package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("duplicate record")
	ErrMissingCredentials = errors.New("missing database credentials: set AZURE_SQL_USER and AZURE_SQL_PASSWORD (with AZURE_SQL_SERVER and AZURE_SQL_DATABASE) or AZURE_SQL_CONNECTION_STRING")
)

const uniqueViolation = "23505"

// Wrap annotates a driver error with op and classifies it. The driver error
// stays in the chain, so errors.As(err, **pgconn.PgError) keeps working.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	if IsDuplicateKey(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
