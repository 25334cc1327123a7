package driven

import "github.com/custodia-labs/kb-sync/internal/core/domain"

// AuthAdapter handles API token cryptographic operations.
type AuthAdapter interface {
	// GenerateToken signs the claims into a bearer token.
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken verifies a bearer token and returns its claims.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ParseToken(token string) (*domain.TokenClaims, error)
}
