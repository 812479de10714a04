// Package models defines server-side data models persisted in the database.
package models

// Account is a registered user. PasswordHash is empty for legacy rows that
// never had a password stored; such accounts cannot log in.
type Account struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}
