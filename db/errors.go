package db

import (
	"strings"

	"github.com/teranos/dcmindex/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or a driver
// error raised on a closed *sql.DB.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDatabaseClosed) || strings.Contains(err.Error(), "database is closed")
}

// Constraint kinds reported by SQLite in "<KIND> constraint failed" messages.
const (
	ConstraintUnique     = "UNIQUE"
	ConstraintCheck      = "CHECK"
	ConstraintForeignKey = "FOREIGN KEY"
	ConstraintNotNull    = "NOT NULL"
)

// ConstraintKind returns which constraint err violated, or "" when err is
// not a constraint failure.
func ConstraintKind(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range []string{ConstraintUnique, ConstraintCheck, ConstraintForeignKey, ConstraintNotNull} {
		if strings.Contains(msg, kind+" constraint failed") {
			return kind
		}
	}
	return ""
}

// IsConstraintViolation reports whether err is a SQLite constraint failure.
func IsConstraintViolation(err error) bool {
	return ConstraintKind(err) != ""
}
