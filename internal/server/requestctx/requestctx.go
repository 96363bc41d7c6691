// Package requestctx carries per-request identity and client details
// through context.Context.
package requestctx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type userIDContextKey struct{}
type clientContextKey struct{}

// Client describes where a request came from, for the audit trail.
type Client struct {
	IPAddress string
	UserAgent string
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}

func WithClient(ctx context.Context, c Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFromContext returns the stored client, or a zero Client.
func ClientFromContext(ctx context.Context) Client {
	if ctx == nil {
		return Client{}
	}
	value, _ := ctx.Value(clientContextKey{}).(Client)
	return value
}

// TrustedProxies are the peers allowed to report the original client
// address through X-Forwarded-For.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts bare addresses and CIDR prefixes.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Contains reports whether host (an address without port) is trusted.
func (p TrustedProxies) Contains(host string) bool {
	a, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, prefix := range p {
		if prefix.Contains(a) {
			return true
		}
	}
	return false
}

// ClientFromRequest records the peer address, or the forwarded client when
// the peer is a trusted proxy.
func ClientFromRequest(r *http.Request, trusted TrustedProxies) Client {
	return Client{
		IPAddress: ClientIP(r.Header.Get("X-Forwarded-For"), r.RemoteAddr, trusted),
		UserAgent: r.UserAgent(),
	}
}

// ClientIP returns the host part of remoteAddr unless that peer is trusted.
// For a trusted peer the forwarded chain is walked from the right and the
// first hop that is not itself a trusted proxy wins.
func ClientIP(forwardedFor, remoteAddr string, trusted TrustedProxies) string {
	peer := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		peer = host
	}
	if forwardedFor == "" || !trusted.Contains(peer) {
		return peer
	}

	hops := strings.Split(forwardedFor, ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !trusted.Contains(hop) {
			break
		}
	}
	return client
}
