package drivers

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// IsNoRows reports whether err is the "no matching row" sentinel, whichever
// backend produced it, so reservation code can treat an empty queue the same
// way regardless of which Driver implementation is in play.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
