// Package requestcontext carries per-request values set by middleware.
package requestcontext

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyClientIP
	keyUserAgent
	keyDeviceFingerprint
	keyDeviceName
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, keyRequestID)
}

// WithClientMetadata stores the resolved client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, ip)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, keyClientIP)
}

func UserAgent(ctx context.Context) string {
	return stringValue(ctx, keyUserAgent)
}

func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, keyDeviceFingerprint, fingerprint)
}

func DeviceFingerprint(ctx context.Context) string {
	return stringValue(ctx, keyDeviceFingerprint)
}

// WithDeviceName stores a display name such as "Chrome on macOS".
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyDeviceName, name)
}

func DeviceName(ctx context.Context) string {
	return stringValue(ctx, keyDeviceName)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
