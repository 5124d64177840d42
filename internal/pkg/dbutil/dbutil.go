package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Rebind converts gendry's MySQL-style `?` placeholders to the `$n` form
// lib/pq expects.
func Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}
