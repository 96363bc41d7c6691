package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

const pgUserColumns = `id, email, auth_verifier, kdf_salt, wrapped_dek, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, auth_verifier, kdf_salt, wrapped_dek, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING ` + pgUserColumns

	got, err := scanPostgres(r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.AuthVerifier, user.KDFSalt, user.WrappedDEK, user.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + pgUserColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + pgUserColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id string, c models.Credentials) (*models.User, error) {
	query :=
		`UPDATE users SET auth_verifier = $2, kdf_salt = $3, wrapped_dek = $4
		 WHERE id = $1
		 RETURNING ` + pgUserColumns

	return r.getOne(ctx, query, id, c.AuthVerifier, c.KDFSalt, c.WrappedDEK)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanPostgres(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func scanPostgres(row scanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.AuthVerifier, &u.KDFSalt, &u.WrappedDEK, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
