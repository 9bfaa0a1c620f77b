package domain

import "time"

// User is an account that can hold sessions.
type User struct {
	ID           string
	Email        string
	PhoneNumber  *string
	FullName     string
	PasswordHash string // argon2id PHC string
	IsActive     bool
	IsSuperuser  bool
	LastLoginAt  *time.Time
	LastLoginIP  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity links a user to an account at an external OAuth provider.
type Identity struct {
	Provider  string
	Subject   string
	UserID    string
	CreatedAt time.Time
}
