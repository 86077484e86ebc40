package auth

import "context"

type identityKey struct{}

// Identity is the authenticated caller attached to a request context.
// An empty Sensors list means the caller may touch every sensor of its
// tenant; a non-empty list restricts it to the named sensor ids.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
	Sensors  []string
}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// TenantIDFromContext extracts the caller's tenant id, or "".
func TenantIDFromContext(ctx context.Context) string {
	id, _ := identityFromContext(ctx)
	return id.TenantID
}

// RoleFromContext extracts the caller's role, or "".
func RoleFromContext(ctx context.Context) Role {
	id, _ := identityFromContext(ctx)
	return id.Role
}

// SubjectFromContext extracts the caller's subject, or "".
func SubjectFromContext(ctx context.Context) string {
	id, _ := identityFromContext(ctx)
	return id.Subject
}

// ScopeAllows reports whether the caller's sensor scope admits sensorID.
// Requests without an identity or with an unscoped token admit every
// sensor; tenant ownership is checked separately.
func ScopeAllows(ctx context.Context, sensorID string) bool {
	id, ok := identityFromContext(ctx)
	if !ok || len(id.Sensors) == 0 {
		return true
	}
	for _, s := range id.Sensors {
		if s == sensorID {
			return true
		}
	}
	return false
}
