package services

import "context"

type contextKey int

const (
	stageKey contextKey = iota
	requestIDKey
	fingerprintKey
)

// Empty values are never stored, so a blank annotation keeps the outer one.
func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }

// WithRequestID annotates context with the request correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, requestIDKey) }

// WithFingerprint annotates context with the content fingerprint being analyzed.
func WithFingerprint(ctx context.Context, key string) context.Context {
	return withString(ctx, fingerprintKey, key)
}

// FingerprintFromContext returns the content fingerprint if present.
func FingerprintFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, fingerprintKey)
}
