package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, email, phone_number, full_name, password_hash, is_active,
	is_superuser, last_login_at, last_login_ip, created_at, updated_at`

const (
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = ? COLLATE NOCASE`
	getUserByPhoneSQL = `SELECT ` + userColumns + ` FROM users WHERE phone_number = ?`

	createUserSQL = `INSERT INTO users (` + userColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updatePasswordHashSQL = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	recordLoginSQL        = `UPDATE users SET last_login_at = ?, last_login_ip = ?, updated_at = ? WHERE id = ?`
	countUsersSQL         = `SELECT COUNT(*) FROM users`

	getIdentitySQL = `SELECT provider, subject, user_id, created_at
	FROM user_identities WHERE provider = ? AND subject = ?`

	linkIdentitySQL = `INSERT INTO user_identities (provider, subject, user_id, created_at)
	VALUES (?, ?, ?, ?)`
)
