package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// LocalVerifier validates provider-issued JWTs against the provider's
// public key without a network round trip.
type LocalVerifier struct {
	key             any
	authorizedParty string
	parser          *jwt.Parser
}

// NewLocalVerifier parses the PEM public key and prepares a strict parser.
func NewLocalVerifier(publicKeyPEM, authorizedParty string) (*LocalVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse identity public key: %w", err)
	}

	return &LocalVerifier{
		key:             key,
		authorizedParty: authorizedParty,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify checks signature, expiry and, when configured, the authorized party.
func (v *LocalVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("local verification: %w", err)
	}
	if !parsed.Valid {
		return Identity{}, fmt.Errorf("local verification: token invalid")
	}

	if v.authorizedParty != "" {
		azp, _ := claims["azp"].(string)
		if azp != v.authorizedParty {
			return Identity{}, fmt.Errorf("local verification: unauthorized party %q", azp)
		}
	}

	return identityFromClaims(claims), nil
}

// identityFromClaims extracts the subject. Providers emit either "sub"
// (JWT) or "user_id" (session token).
func identityFromClaims(claims map[string]any) Identity {
	subject, _ := claims["sub"].(string)
	if subject == "" {
		subject, _ = claims["user_id"].(string)
	}
	return Identity{Subject: subject, Claims: claims}
}
