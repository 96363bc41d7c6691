package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/valutx/internal/server/api"
)

const ServiceName = "valutx.v1.Vault"

// VaultServer is the valutx.v1.Vault service.
type VaultServer interface {
	Ping(context.Context, *api.Empty) (*api.Status, error)
	Signup(context.Context, *api.SignupRequest) (*api.User, error)
	Login(context.Context, *api.LoginRequest) (*api.Token, error)
	GetSalt(context.Context, *api.SaltRequest) (*api.SaltResponse, error)
	RotateKey(context.Context, *api.RotateKeyRequest) (*api.User, error)
	ListItems(context.Context, *api.ListRequest) (*api.ItemList, error)
	CreateItem(context.Context, *api.ItemCreateRequest) (*api.Item, error)
	GetItem(context.Context, *api.ItemIDRequest) (*api.Item, error)
	UpdateItem(context.Context, *api.ItemUpdateRequest) (*api.Item, error)
	DeleteItem(context.Context, *api.ItemIDRequest) (*api.Status, error)
	ExportVault(context.Context, *api.Empty) (*api.Export, error)
	ListAuditEvents(context.Context, *api.ListRequest) (*api.AuditEventList, error)
}

// FullMethod returns "/valutx.v1.Vault/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// publicMethods are served without an access token.
var publicMethods = map[string]bool{
	FullMethod("Ping"):    true,
	FullMethod("Signup"):  true,
	FullMethod("Login"):   true,
	FullMethod("GetSalt"): true,
}

func unary[Req, Resp any](name string, call func(VaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(VaultServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", VaultServer.Ping),
		unary("Signup", VaultServer.Signup),
		unary("Login", VaultServer.Login),
		unary("GetSalt", VaultServer.GetSalt),
		unary("RotateKey", VaultServer.RotateKey),
		unary("ListItems", VaultServer.ListItems),
		unary("CreateItem", VaultServer.CreateItem),
		unary("GetItem", VaultServer.GetItem),
		unary("UpdateItem", VaultServer.UpdateItem),
		unary("DeleteItem", VaultServer.DeleteItem),
		unary("ExportVault", VaultServer.ExportVault),
		unary("ListAuditEvents", VaultServer.ListAuditEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "valutx/v1/vault",
}

// RegisterVaultServer registers srv on s.
func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&serviceDesc, srv)
}
