package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// AuthService validates and issues API tokens
type AuthService interface {
	// ValidateToken validates a bearer token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken signs a token for subject with the given role and lifetime
	IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error)
}
