// Package services contains server-side business logic. AuthService owns
// signup, login, key rotation and salt lookup; nothing here ever sees a
// master password or a plaintext DEK.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/audit"
	"github.com/dmitrijs2005/valutx/internal/server/auth"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/valutx/internal/server/throttle"
	"github.com/dmitrijs2005/valutx/internal/server/verifier"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/valutx/internal/server/services")

// dummyAuthKey is hashed once and compared against on unknown emails so a
// miss costs the same bcrypt work as a wrong key.
const dummyAuthKey = "valutx-timing-equalisation"

type SignupInput struct {
	Email      string
	AuthKey    string
	KDFSalt    string
	WrappedDEK string
}

type RotateKeyInput struct {
	AuthKey    string
	KDFSalt    string
	WrappedDEK string
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *verifier.Codec
	tokens      *auth.Issuer
	audit       audit.Sink
	limiter     throttle.Limiter
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
	dummy       string
}

func NewAuthService(db *sql.DB, rm repomanager.RepositoryManager, codec *verifier.Codec, tokens *auth.Issuer,
	sink audit.Sink, limiter throttle.Limiter, logger logging.Logger) *AuthService {
	if limiter == nil {
		limiter = throttle.Noop{}
	}
	if sink == nil {
		sink = audit.Discard{}
	}
	dummy, err := codec.Hash([]byte(dummyAuthKey))
	if err != nil {
		logger.Error(context.Background(), "dummy verifier hash failed", "error", err)
	}
	return &AuthService{
		db:          db,
		repomanager: rm,
		codec:       codec,
		tokens:      tokens,
		audit:       sink,
		limiter:     limiter,
		logger:      logger.With("module", "auth_service"),
		now:         time.Now,
		newID:       uuid.NewString,
		dummy:       dummy,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if !validEmail(in.Email) || in.AuthKey == "" || in.KDFSalt == "" || in.WrappedDEK == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, span, "signup lookup failed", err)
	}

	v, err := s.codec.Hash([]byte(in.AuthKey))
	if err != nil {
		return nil, s.internal(ctx, span, "hash auth key failed", err)
	}

	user, err := repo.Create(ctx, &models.User{
		ID:           s.newID(),
		Email:        in.Email,
		AuthVerifier: v,
		KDFSalt:      in.KDFSalt,
		WrappedDEK:   in.WrappedDEK,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, s.internal(ctx, span, "create user failed", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	s.emit(ctx, audit.Event{UserID: user.ID, Type: models.EventSignup, Details: "User registered"})
	return user, nil
}

// Login returns common.ErrorUnauthorized for an unknown email, a wrong key
// and any internal failure alike.
func (s *AuthService) Login(ctx context.Context, email, authKey string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" || authKey == "" {
		return nil, common.ErrorValidation
	}

	allowed, err := s.limiter.Allowed(ctx, email)
	if err != nil {
		s.logger.Warn(ctx, "login throttle unavailable", "error", err)
	}
	if !allowed {
		return nil, common.ErrTooManyAttempts
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "login lookup failed", "error", err)
		}
		s.codec.Verify([]byte(authKey), s.dummy)
		s.recordFailure(ctx, email)
		return nil, common.ErrorUnauthorized
	}

	format := s.codec.Match([]byte(authKey), user.AuthVerifier)
	if format == verifier.FormatNone {
		s.recordFailure(ctx, email)
		s.emit(ctx, audit.Event{UserID: user.ID, Type: models.EventLoginFailed, Details: "Incorrect password"})
		return nil, common.ErrorUnauthorized
	}
	if format == verifier.FormatLegacy {
		s.logger.Info(ctx, "login with legacy verifier", "user_id", user.ID)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, 0)
	if err != nil {
		s.logger.Error(ctx, "issue token failed", "error", err)
		return nil, common.ErrorUnauthorized
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn(ctx, "login throttle reset failed", "error", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("verifier.format", format.String()))
	s.emit(ctx, audit.Event{UserID: user.ID, Type: models.EventLogin, Details: "Login successful"})
	return &Session{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// RotateKey replaces the verifier, KDF salt and wrapped DEK in one write.
// Items are not touched: the DEK is the same, only its wrapping changes.
func (s *AuthService) RotateKey(ctx context.Context, userID string, in RotateKeyInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.RotateKey")
	defer span.End()

	if userID == "" {
		return nil, common.ErrInvalidToken
	}
	if in.AuthKey == "" || in.KDFSalt == "" || in.WrappedDEK == "" {
		return nil, common.ErrorValidation
	}

	v, err := s.codec.Hash([]byte(in.AuthKey))
	if err != nil {
		return nil, s.internal(ctx, span, "hash auth key failed", err)
	}

	user, err := s.repomanager.Users(s.db).UpdateCredentials(ctx, userID, models.Credentials{
		AuthVerifier: v,
		KDFSalt:      in.KDFSalt,
		WrappedDEK:   in.WrappedDEK,
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, span, "update credentials failed", err)
	}

	s.emit(ctx, audit.Event{UserID: user.ID, Type: models.EventKeyRotation, Details: "Master key rotated"})
	return user, nil
}

// GetSalt is unauthenticated. It reveals whether an email is registered.
func (s *AuthService) GetSalt(ctx context.Context, email string) (string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.GetSalt")
	defer span.End()

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", s.internal(ctx, span, "salt lookup failed", err)
	}
	return user.KDFSalt, nil
}

// Authenticate resolves a bearer token to a live user. Tokens for deleted
// users are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		s.logger.Error(ctx, "token subject lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.logger.Warn(ctx, "login throttle update failed", "error", err)
	}
}

func (s *AuthService) emit(ctx context.Context, e audit.Event) {
	if err := s.audit.Emit(ctx, e); err != nil {
		s.logger.Warn(ctx, "audit emission failed", "event_type", string(e.Type), "error", err)
	}
}

func (s *AuthService) internal(ctx context.Context, span trace.Span, msg string, err error) error {
	return failInternal(ctx, s.logger, span, msg, err)
}

// failInternal logs err for operators and returns the opaque
// common.ErrorInternal to the caller.
func failInternal(ctx context.Context, logger logging.Logger, span trace.Span, msg string, err error) error {
	logger.Error(ctx, msg, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return fmt.Errorf("%w: %s", common.ErrorInternal, msg)
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
