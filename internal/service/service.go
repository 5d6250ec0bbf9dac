package service

import (
	"database/sql"
	"errors"

	"github.com/pongline/matchcore/internal/apperr"
)

// notFoundOr maps a missing-row scan onto the caller-facing taxonomy and
// passes every other failure through untouched.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return err
}
