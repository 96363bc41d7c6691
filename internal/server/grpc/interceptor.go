package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
)

// clientInterceptor records peer address and user agent for audit events.
// x-forwarded-for counts only when the peer is a trusted proxy.
func (s *GRPCServer) clientInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var forwarded, remote, agent string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		forwarded = first(md, "x-forwarded-for")
		agent = first(md, "user-agent")
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}
	ctx = requestctx.WithClient(ctx, requestctx.Client{
		IPAddress: requestctx.ClientIP(forwarded, remote, s.trusted),
		UserAgent: agent,
	})
	return handler(ctx, req)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v, found := strings.CutPrefix(first(md, common.AuthorizationHeaderName), common.BearerPrefix); found {
			accessToken = strings.TrimSpace(v)
		}
		if accessToken == "" {
			accessToken = first(md, common.AccessTokenHeaderName)
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.auth.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(requestctx.WithUserID(ctx, user.ID), req)
}

func (s *GRPCServer) recoverInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error(ctx, "panic in handler", "panic", v, "method", info.FullMethod)
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
