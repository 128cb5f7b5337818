package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint failures shared by the Postgres repositories and Memory.
var (
	ErrDuplicate  = errors.New("duplicate key")
	ErrInvalidRow = errors.New("constraint check failed")
	ErrReference  = errors.New("dangling reference")
)

// Postgres error codes the repositories classify.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
	codeForeignKey      = "23503"
	codeNotNull         = "23502"
)

// Classify tags constraint violations with the matching sentinel so services
// can branch on errors.Is without knowing the driver. Other errors pass
// through unchanged.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case codeCheckViolation, codeNotNull:
		return fmt.Errorf("%w: %w", ErrInvalidRow, err)
	case codeForeignKey:
		return fmt.Errorf("%w: %w", ErrReference, err)
	}
	return err
}
