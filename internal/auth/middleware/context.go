package auth

import "context"

type ctxKey string

const ctxKeySub ctxKey = "sub"

// WithSubject records the authenticated staff username on the request
// context; JWTMiddleware attaches it after a token parses.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeySub).(string); ok {
		return s
	}
	return ""
}
