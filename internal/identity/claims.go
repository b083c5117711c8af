package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity assertions carried by the gateway token.
type Claims struct {
	Subject     string
	Email       string
	TenantClaim string
}

// ParseClaims extracts identity claims from a bearer token. Signature
// validation happens at the upstream gateway before the request reaches this
// service, so the token is parsed without verification here. An absent or
// malformed token is still rejected.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := Claims{Subject: sub}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if tenant, ok := claims["tenant"].(string); ok {
		out.TenantClaim = tenant
	}
	return out, nil
}
