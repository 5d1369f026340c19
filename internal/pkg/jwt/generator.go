// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	secret []byte
	issuer string
	Ttl    time.Duration
}

func NewGenerator(secret, issuer string, ttl time.Duration) *Generator {
	return &Generator{
		secret: []byte(secret),
		issuer: issuer,
		Ttl:    ttl,
	}
}

// Generate signs an operator token and returns it with its jti.
func (g *Generator) Generate(subject, businessID string, roles []string) (string, string, error) {
	if len(g.secret) == 0 {
		return "", "", fmt.Errorf("jwt generator has empty secret")
	}

	now := time.Now()
	jti := ulid.Make().String()

	claims := &Claims{
		BusinessID: businessID,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.Ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	return signed, jti, err
}

// GenerateOperatorToken issues a token scoped to one business.
func (g *Generator) GenerateOperatorToken(subject, businessID string) (string, string, error) {
	return g.Generate(subject, businessID, []string{"operator"})
}

// GenerateAdminToken issues a token that may act on every business.
func (g *Generator) GenerateAdminToken(subject string) (string, string, error) {
	return g.Generate(subject, "", []string{RoleAdmin})
}
