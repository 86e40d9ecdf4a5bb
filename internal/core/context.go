package core

import "context"

type clientKey struct{}

// WithClientIP tags ctx with the address of the client a call is made for.
// Service events log it hashed as ip_hash.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientKey{}, ip)
}

// ClientIPFrom returns the client address stored by WithClientIP.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientKey{}).(string)
	return ip
}
