package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// mapError maps PostgreSQL errors to session store errors. Context
// cancellation is returned unchanged.
func mapError(err error, operation, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgErrorCode(pgErr, operation, key)
	}

	if pgconn.Timeout(err) {
		return sesserrors.NewUnavailableError(fmt.Sprintf("postgres %s timed out", operation), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return sesserrors.NewUnavailableError(fmt.Sprintf("postgres %s: cannot connect", operation), err)
	}

	return fmt.Errorf("postgres %s %q: %w", operation, key, err)
}

// mapPgErrorCode maps SQLSTATE codes.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapPgErrorCode(pgErr *pgconn.PgError, operation, key string) error {
	switch {
	// 40001: serialization_failure, 40P01: deadlock_detected
	case pgErr.Code == "40001" || pgErr.Code == "40P01":
		return sesserrors.NewConflictError(key, pgErr)

	// 23514: check_violation (empty value)
	case pgErr.Code == "23514":
		return &sesserrors.StoreError{
			Code:    sesserrors.ErrInvalidArgument,
			Message: fmt.Sprintf("%s: invalid value", operation),
			Key:     key,
			Err:     pgErr,
		}

	// Class 08: connection exception, 53300: too_many_connections,
	// 57P01..57P03: server shutting down or not accepting connections
	case strings.HasPrefix(pgErr.Code, "08"),
		pgErr.Code == "53300",
		pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
		return sesserrors.NewUnavailableError(fmt.Sprintf("postgres %s failed", operation), pgErr)

	// 57014: query_canceled (statement_timeout)
	case pgErr.Code == "57014":
		return sesserrors.NewUnavailableError(fmt.Sprintf("postgres %s canceled", operation), pgErr)

	default:
		return fmt.Errorf("postgres %s %q: %w", operation, key, pgErr)
	}
}
