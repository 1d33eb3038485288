package models

import "time"

// Credential is the envelope-encrypted WB API key of one user. Exactly one
// row per user; the plaintext key never touches the database.
type Credential struct {
	UserID     string
	Ciphertext []byte
	Salt       []byte
	KeyVersion int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
