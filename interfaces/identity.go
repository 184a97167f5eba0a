package interfaces

import (
	"context"

	"golang.org/x/oauth2"
)

// IdentityService is the boundary to the external identity provider: it
// resolves inbound caller credentials to an owner and yields provider access
// tokens for that owner. Both failure modes are authentication errors,
// distinct from sync failures.
type IdentityService interface {
	// ResolveOwner verifies a caller token and returns the owner id.
	ResolveOwner(ctx context.Context, callerToken string) (string, error)
	// ProviderTokenSource returns an oauth2 token source usable against the
	// remote mail provider on behalf of the owner.
	ProviderTokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error)
}
