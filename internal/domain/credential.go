package domain

import "time"

// CredentialTypePassword tags password credentials.
const CredentialTypePassword = "PWD"

// Credential is a hashed secret bound to a user. Key and Salt are hex encoded.
type Credential struct {
	ID        string
	UserID    string
	Type      string
	Key       string
	Salt      string
	CreatedAt time.Time
	ExpiredAt *time.Time
}
