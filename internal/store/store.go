package store

import (
	"database/sql"
	"strings"
)

// dbtx is satisfied by *sql.DB and *sql.Tx. Methods that must run inside a
// caller-owned transaction take a dbtx instead of using the store's handle.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// IsUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The driver exposes no typed error for it, so match the message.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
