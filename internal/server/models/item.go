package models

import "time"

// Item is an encrypted vault record. The server never interprets
// Ciphertext, IV or AuthTag.
type Item struct {
	ID           string
	UserID       string
	Type         string
	Ciphertext   string
	IV           string
	AuthTag      string
	Version      int64
	CreatedAt    time.Time
	LastModified time.Time
}

// ItemPatch carries the fields of a partial update; nil means "keep".
type ItemPatch struct {
	Type       *string
	Ciphertext *string
	IV         *string
	AuthTag    *string
}

// Empty reports whether the patch changes no field.
func (p ItemPatch) Empty() bool {
	return p.Type == nil && p.Ciphertext == nil && p.IV == nil && p.AuthTag == nil
}
