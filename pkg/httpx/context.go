package httpx

import "context"

type ctxKey string

const (
	CtxKeyEmail ctxKey = "email"
	CtxKeyStaff ctxKey = "staff"
)

// EmailFromContext returns the authenticated caller's email, if any.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyEmail).(string); ok {
		return v
	}
	return ""
}

// StaffFromContext reports whether the authenticated caller is staff.
func StaffFromContext(ctx context.Context) bool {
	v, ok := ctx.Value(CtxKeyStaff).(bool)
	return ok && v
}
