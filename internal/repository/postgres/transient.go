package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/spark/internal/repository"
)

// SQLSTATE codes that mean "the transaction lost a race, try again":
// serialization_failure, deadlock_detected, unique_violation (two
// writers raced past the existence check), lock_not_available.
var transientCodes = map[string]struct{}{
	"40001": {},
	"40P01": {},
	"23505": {},
	"55P03": {},
}

func wrapTransient(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := transientCodes[pgErr.Code]; ok {
			return fmt.Errorf("%w: %s", repository.ErrTransient, pgErr.Code)
		}
	}
	return err
}
