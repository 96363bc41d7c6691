package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/server/api"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
	"github.com/dmitrijs2005/valutx/internal/server/services"
)

var _ VaultServer = (*GRPCServer)(nil)

func (s *GRPCServer) Ping(ctx context.Context, _ *api.Empty) (*api.Status, error) {
	return &api.Status{Status: "OK"}, nil
}

func (s *GRPCServer) Signup(ctx context.Context, req *api.SignupRequest) (*api.User, error) {
	user, err := s.auth.Signup(ctx, services.SignupInput{
		Email:      req.Email,
		AuthKey:    req.AuthHashDerived,
		KDFSalt:    req.KDFSalt,
		WrappedDEK: req.EncryptedDEK,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := api.FromUser(user)
	return &out, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.Token, error) {
	sess, err := s.auth.Login(ctx, req.Email, req.AuthHashDerived)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.Token{
		AccessToken: sess.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   sess.ExpiresAt,
		User:        api.FromUser(sess.User),
	}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *api.SaltRequest) (*api.SaltResponse, error) {
	salt, err := s.auth.GetSalt(ctx, req.Email)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SaltResponse{KDFSalt: salt}, nil
}

func (s *GRPCServer) RotateKey(ctx context.Context, req *api.RotateKeyRequest) (*api.User, error) {
	user, err := s.auth.RotateKey(ctx, requestctx.UserIDFromContext(ctx), services.RotateKeyInput{
		AuthKey:    req.NewAuthHashDerived,
		KDFSalt:    req.NewKDFSalt,
		WrappedDEK: req.NewEncryptedDEK,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := api.FromUser(user)
	return &out, nil
}

func (s *GRPCServer) ListItems(ctx context.Context, req *api.ListRequest) (*api.ItemList, error) {
	list, err := s.items.List(ctx, requestctx.UserIDFromContext(ctx), req.Page())
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ItemList{Items: api.FromItems(list)}, nil
}

func (s *GRPCServer) CreateItem(ctx context.Context, req *api.ItemCreateRequest) (*api.Item, error) {
	item, err := s.items.Create(ctx, requestctx.UserIDFromContext(ctx), services.CreateItemInput{
		Type:       req.Type,
		Ciphertext: req.EncData,
		IV:         req.IV,
		AuthTag:    req.AuthTag,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := api.FromItem(item)
	return &out, nil
}

func (s *GRPCServer) GetItem(ctx context.Context, req *api.ItemIDRequest) (*api.Item, error) {
	item, err := s.items.Get(ctx, requestctx.UserIDFromContext(ctx), req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := api.FromItem(item)
	return &out, nil
}

func (s *GRPCServer) UpdateItem(ctx context.Context, req *api.ItemUpdateRequest) (*api.Item, error) {
	item, err := s.items.Update(ctx, requestctx.UserIDFromContext(ctx), req.ID, services.UpdateItemInput{
		Patch:       req.Patch(),
		BaseVersion: req.Version,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := api.FromItem(item)
	return &out, nil
}

func (s *GRPCServer) DeleteItem(ctx context.Context, req *api.ItemIDRequest) (*api.Status, error) {
	if err := s.items.Delete(ctx, requestctx.UserIDFromContext(ctx), req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &api.Status{Status: "success"}, nil
}

func (s *GRPCServer) ExportVault(ctx context.Context, _ *api.Empty) (*api.Export, error) {
	exp, err := s.exports.Export(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.Export{Key: exp.Key, URL: exp.URL, ExpiresAt: exp.ExpiresAt}, nil
}

func (s *GRPCServer) ListAuditEvents(ctx context.Context, req *api.ListRequest) (*api.AuditEventList, error) {
	events, err := s.audits.List(ctx, requestctx.UserIDFromContext(ctx), req.Page())
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.AuditEventList{Events: api.FromAuditEvents(events)}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "incorrect email or password")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "could not validate credentials")
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrVersionConflict):
		return status.Error(codes.Aborted, "version conflict")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, "invalid request")
	case errors.Is(err, common.ErrTooManyAttempts):
		return status.Error(codes.ResourceExhausted, "too many failed login attempts")
	case errors.Is(err, common.ErrExportUnavailable):
		return status.Error(codes.Unavailable, "export not configured")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
