package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

const sqliteUserColumns = `id, email, auth_verifier, kdf_salt, wrapped_dek, created_at`

// SQLiteRepository keeps timestamps as INTEGER unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, auth_verifier, kdf_salt, wrapped_dek, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING ` + sqliteUserColumns

	got, err := scanSQLite(r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.AuthVerifier, user.KDFSalt, user.WrappedDEK, user.CreatedAt.UnixMilli()))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + sqliteUserColumns + ` FROM users WHERE email = ?`
	return r.getOne(ctx, query, email)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + sqliteUserColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *SQLiteRepository) UpdateCredentials(ctx context.Context, id string, c models.Credentials) (*models.User, error) {
	query :=
		`UPDATE users SET auth_verifier = ?, kdf_salt = ?, wrapped_dek = ?
		 WHERE id = ?
		 RETURNING ` + sqliteUserColumns

	return r.getOne(ctx, query, c.AuthVerifier, c.KDFSalt, c.WrappedDEK, id)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanSQLite(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func scanSQLite(row scanner) (*models.User, error) {
	u := &models.User{}
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Email, &u.AuthVerifier, &u.KDFSalt, &u.WrappedDEK, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return u, nil
}
