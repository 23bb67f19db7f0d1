package service

import "context"

type sourceAddressKey struct{}

// WithSourceAddress attaches the caller's network address for audit entries.
func WithSourceAddress(ctx context.Context, address string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sourceAddressKey{}, address)
}

// SourceAddress returns the address stored by WithSourceAddress.
func SourceAddress(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(sourceAddressKey{}).(string); ok {
		return value
	}
	return ""
}
