package identity

import (
	"context"
	"fmt"

	"github.com/vectorthoughts/blog-api/internal/config"
)

// Verifier is one strategy for turning a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Service tries an ordered list of verification strategies; the first
// success wins. The admin allow-list is applied after verification.
type Service struct {
	verifiers    []Verifier
	adminSubject string
}

// NewService wires the configured strategies: local JWT verification when a
// public key is available, then remote verification when an endpoint is set.
func NewService(cfg config.IdentityConfig) (*Service, error) {
	var verifiers []Verifier

	if cfg.PublicKeyPEM != "" {
		local, err := NewLocalVerifier(cfg.PublicKeyPEM, cfg.AuthorizedParty)
		if err != nil {
			return nil, fmt.Errorf("configure local verifier: %w", err)
		}
		verifiers = append(verifiers, local)
	}

	if cfg.VerifyURL != "" {
		verifiers = append(verifiers, NewRemoteVerifier(cfg.VerifyURL, cfg.RemoteTimeout))
	}

	if len(verifiers) == 0 {
		return nil, fmt.Errorf("identity: no verification strategy configured")
	}

	return &Service{verifiers: verifiers, adminSubject: cfg.AdminSubject}, nil
}

// NewServiceWithVerifiers builds a service from explicit strategies.
func NewServiceWithVerifiers(adminSubject string, verifiers ...Verifier) *Service {
	return &Service{verifiers: verifiers, adminSubject: adminSubject}
}

// Authenticate resolves the token through the strategy chain.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	var lastErr error
	for _, v := range s.verifiers {
		ident, err := v.Verify(ctx, token)
		if err == nil {
			return s.applyAdmin(ident)
		}
		lastErr = err
	}

	if lastErr != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, lastErr)
	}
	return Identity{}, ErrUnauthorized
}

func (s *Service) applyAdmin(ident Identity) (Identity, error) {
	if ident.Subject == "" {
		return Identity{}, ErrUnauthorized
	}
	if s.adminSubject != "" && ident.Subject != s.adminSubject {
		return Identity{}, ErrForbidden
	}
	ident.IsAdmin = true
	return ident, nil
}
