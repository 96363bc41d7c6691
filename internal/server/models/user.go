// Package models defines the plain records the server persists.
package models

import "time"

// User is a credential record. AuthVerifier, KDFSalt and WrappedDEK change
// together or not at all.
type User struct {
	ID           string
	Email        string
	AuthVerifier string
	KDFSalt      string
	WrappedDEK   string
	CreatedAt    time.Time
}

// Credentials is the triple replaced by a key rotation.
type Credentials struct {
	AuthVerifier string
	KDFSalt      string
	WrappedDEK   string
}
