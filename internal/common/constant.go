package common

// AccessTokenHeaderName is the gRPC metadata key accepted as an alternative
// to the standard authorization header.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries "Bearer <token>" on both transports.
const AuthorizationHeaderName = "authorization"

// BearerPrefix is the scheme prefix expected in the authorization header.
const BearerPrefix = "Bearer "
