// Package api holds the JSON wire types shared by the REST and gRPC
// transports. Field names match the ValutX web client.
package api

import (
	"time"

	"github.com/dmitrijs2005/valutx/internal/server/models"
)

type SignupRequest struct {
	Email           string `json:"email"`
	AuthHashDerived string `json:"auth_hash_derived"`
	KDFSalt         string `json:"kdf_salt"`
	EncryptedDEK    string `json:"encrypted_dek"`
}

type LoginRequest struct {
	Email           string `json:"email"`
	AuthHashDerived string `json:"auth_hash_derived"`
}

type RotateKeyRequest struct {
	NewAuthHashDerived string `json:"new_auth_hash_derived"`
	NewKDFSalt         string `json:"new_kdf_salt"`
	NewEncryptedDEK    string `json:"new_encrypted_dek"`
}

type SaltRequest struct {
	Email string `json:"email"`
}

type SaltResponse struct {
	KDFSalt string `json:"kdf_salt"`
}

// User never carries the verifier.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	KDFSalt      string    `json:"kdf_salt"`
	EncryptedDEK string    `json:"encrypted_dek"`
	CreatedAt    time.Time `json:"created_at"`
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

type ItemCreateRequest struct {
	Type    string `json:"type"`
	EncData string `json:"enc_data"`
	IV      string `json:"iv"`
	AuthTag string `json:"auth_tag"`
}

// ItemUpdateRequest is a partial update; absent fields are kept. ID is only
// read by the gRPC transport, REST takes it from the path.
type ItemUpdateRequest struct {
	ID      string  `json:"id,omitempty"`
	Type    *string `json:"type,omitempty"`
	EncData *string `json:"enc_data,omitempty"`
	IV      *string `json:"iv,omitempty"`
	AuthTag *string `json:"auth_tag,omitempty"`
	Version *int64  `json:"version,omitempty"`
}

func (r ItemUpdateRequest) Patch() models.ItemPatch {
	return models.ItemPatch{Type: r.Type, Ciphertext: r.EncData, IV: r.IV, AuthTag: r.AuthTag}
}

type ItemIDRequest struct {
	ID string `json:"id"`
}

type Item struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	EncData      string    `json:"enc_data"`
	IV           string    `json:"iv"`
	AuthTag      string    `json:"auth_tag"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

type ListRequest struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func (r ListRequest) Page() models.Page {
	return models.Page{Offset: r.Skip, Limit: r.Limit}
}

type ItemList struct {
	Items []Item `json:"items"`
}

type AuditEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

type AuditEventList struct {
	Events []AuditEvent `json:"events"`
}

type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Status struct {
	Status string `json:"status"`
}

type Message struct {
	Message string `json:"message"`
}

type Empty struct{}

func FromUser(u *models.User) User {
	return User{ID: u.ID, Email: u.Email, KDFSalt: u.KDFSalt, EncryptedDEK: u.WrappedDEK, CreatedAt: u.CreatedAt}
}

func FromItem(it *models.Item) Item {
	return Item{
		ID:           it.ID,
		UserID:       it.UserID,
		Type:         it.Type,
		EncData:      it.Ciphertext,
		IV:           it.IV,
		AuthTag:      it.AuthTag,
		Version:      it.Version,
		CreatedAt:    it.CreatedAt,
		LastModified: it.LastModified,
	}
}

func FromItems(list []*models.Item) []Item {
	out := make([]Item, 0, len(list))
	for _, it := range list {
		out = append(out, FromItem(it))
	}
	return out
}

func FromAuditEvents(list []*models.AuditEvent) []AuditEvent {
	out := make([]AuditEvent, 0, len(list))
	for _, e := range list {
		out = append(out, AuditEvent{
			ID:        e.ID,
			UserID:    e.UserID,
			EventType: string(e.EventType),
			Severity:  string(e.Severity),
			Details:   e.Details,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Timestamp: e.Timestamp,
		})
	}
	return out
}
