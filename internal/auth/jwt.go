package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token validation. ErrTokenInvalid wraps the
// underlying parse or claim failure.
var (
	ErrTokenMissing = errors.New("auth: missing token")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Claims are the token claims this service issues and accepts. Sensors,
// when present, restricts the token to the named sensor ids; an absent
// list grants access to every sensor of the tenant.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Role     string   `json:"role"`
	Sensors  []string `json:"sensors,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts validated claims into the request identity.
func (c *Claims) Identity() Identity {
	role, _ := NormalizeRole(c.Role)
	return Identity{
		TenantID: c.TenantID,
		Role:     role,
		Subject:  c.Subject,
		Sensors:  c.Sensors,
	}
}

// ParseJWT validates an HS256 token and returns its claims. Expiry is
// mandatory and enforced by the parser.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id claim missing", ErrTokenInvalid)
	}
	if _, ok := NormalizeRole(claims.Role); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}
