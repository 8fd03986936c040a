package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/slotbook/internal/apperr"
)

// SQLSTATE codes the stores translate into domain errors.
const (
	uniqueViolation     = "23505"
	exclusionViolation  = "23P01"
	foreignKeyViolation = "23503"
)

// wrapWrite turns constraint violations into classified errors and wraps
// everything else with the operation name.
//
// The exclusion constraint on appointments is the last line against double
// booking: two requests can both pass the conflict pre-check, but only one
// insert survives it.
func wrapWrite(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperr.Conflict("%s: duplicate value violates %s", op, pgErr.ConstraintName)
		case exclusionViolation:
			return apperr.Conflict("appointment conflicts with existing booking")
		case foreignKeyViolation:
			return apperr.Validation("%s: referenced record does not exist", op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// jsonbParam sends a nil map as SQL NULL rather than a JSON null document,
// which keeps COALESCE-style partial updates working.
func jsonbParam(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
