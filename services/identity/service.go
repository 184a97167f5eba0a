package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/mailweave/mailweave/config"
	"github.com/mailweave/mailweave/interfaces"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
)

// identityService verifies caller JWTs against the identity provider's JWKS
// and exchanges owner ids for provider access tokens through its token
// endpoint. Both failure modes surface as ErrAuthFailed, never as sync
// errors.
type identityService struct {
	cfg        *config.IdentityConfig
	log        logger.Logger
	httpClient *http.Client
	jwkCache   *jwk.Cache
}

func NewIdentityService(ctx context.Context, cfg *config.IdentityConfig, log logger.Logger) (interfaces.IdentityService, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, errors.Wrap(err, "failed to register JWKS endpoint")
	}

	return &identityService{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwkCache:   cache,
	}, nil
}

func (s *identityService) ResolveOwner(ctx context.Context, callerToken string) (string, error) {
	keySet, err := s.jwkCache.Get(ctx, s.cfg.JWKSURL)
	if err != nil {
		return "", errors.Wrap(apperrors.ErrAuthFailed, "failed to fetch JWKS")
	}

	token, err := jwt.Parse(
		[]byte(callerToken),
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
	)
	if err != nil {
		return "", errors.Wrap(apperrors.ErrAuthFailed, err.Error())
	}

	if token.Subject() == "" {
		return "", errors.Wrap(apperrors.ErrAuthFailed, "token has no subject")
	}
	return token.Subject(), nil
}

type providerTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *identityService) ProviderTokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	endpoint := fmt.Sprintf("%s?owner=%s", s.cfg.ProviderTokenURL, url.QueryEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Identity-Key", s.cfg.ServiceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "identity token endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// No linked provider account or revoked consent; callers must not
		// retry this in a loop.
		return nil, errors.Wrapf(apperrors.ErrAuthFailed, "no provider credential for owner %s", ownerID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("identity token endpoint returned %d", resp.StatusCode)
	}

	var tokenResp providerTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode token response")
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.Wrapf(apperrors.ErrAuthFailed, "empty provider token for owner %s", ownerID)
	}

	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		Expiry:      tokenResp.ExpiresAt,
	}), nil
}
