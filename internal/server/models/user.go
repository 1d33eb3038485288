package models

import "time"

// User is a seller principal identified by their Telegram account.
// Created lazily on first successful login-token redemption.
type User struct {
	ID          string
	TelegramID  int64
	Role        string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// IsAdmin reports whether the user may access operator-only pages.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
