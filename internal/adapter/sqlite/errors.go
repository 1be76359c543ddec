package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// SQLite extended result codes for the constraint violations this
// adapter cares about (see sqlite3.h); modernc.org/sqlite surfaces them
// unchanged on *sqlite.Error.Code().
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintForeignKey = 787
	sqliteConstraintCheck      = 275
)

// MapError converts sql/sqlite errors to domain errors, for use by the
// jobstore and learning sub-packages against their own driver errors.
// context.DeadlineExceeded and context.Canceled are wrapped with the
// entity and id but not translated, so errors.Is still matches them.
func MapError(err error, entity string, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case sqliteConstraintForeignKey:
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case sqliteConstraintCheck:
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
