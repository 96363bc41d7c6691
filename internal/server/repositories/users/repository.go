// Package users stores credential records.
package users

import (
	"context"

	"github.com/dmitrijs2005/valutx/internal/server/models"
)

// Repository is the credential store. Lookups that match nothing return
// common.ErrorNotFound; an email collision on Create returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateCredentials replaces verifier, salt and wrapped DEK in a single
	// statement, so readers see either the old triple or the new one.
	UpdateCredentials(ctx context.Context, id string, c models.Credentials) (*models.User, error)
}

type scanner interface {
	Scan(dest ...any) error
}
