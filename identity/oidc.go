package identity

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
	"github.com/adultna/go-session-gateway/internal/utils"
)

// OIDCClient implements Service against a standards-compliant OIDC provider,
// for deployments where the identity service exposes discovery instead of
// the bespoke Lambda endpoints. Refresh goes through the provider's token
// endpoint; Me goes through its userinfo endpoint.
type OIDCClient struct {
	provider     *oidc.Provider
	oauth2Config *oauth2.Config
}

var _ Service = (*OIDCClient)(nil)

// NewOIDCClient discovers the provider at issuerURL.
func NewOIDCClient(ctx context.Context, issuerURL, clientID, clientSecret string) (*OIDCClient, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCClient] failed to create OIDC provider")
	}

	return &OIDCClient{
		provider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
		},
	}, nil
}

// Me resolves the user through the provider's userinfo endpoint.
func (c *OIDCClient) Me(ctx context.Context, accessToken string) (*User, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "bearer"})

	info, err := c.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, gatewayerrors.ErrUnauthenticated
	}

	var claims struct {
		Role        *string `json:"role"`
		Deactivated bool    `json:"deactivated"`
	}
	_ = info.Claims(&claims)

	if claims.Deactivated {
		return nil, gatewayerrors.ErrUserDeactivated
	}

	return &User{
		ID:    info.Subject,
		Email: info.Email,
		Role:  utils.Value(claims.Role),
	}, nil
}

// Refresh rotates the credential pair through the provider's token endpoint.
func (c *OIDCClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	source := c.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	renewed, err := source.Token()
	if err != nil {
		return nil, gatewayerrors.ErrInvalidRefreshToken
	}

	newRefreshToken := renewed.RefreshToken
	if newRefreshToken == "" {
		// Providers that don't rotate keep the old token live.
		newRefreshToken = refreshToken
	}

	return &RefreshResult{
		AccessToken:           renewed.AccessToken,
		RefreshToken:          newRefreshToken,
		AccessTokenExpiresAt:  renewed.Expiry,
		RefreshTokenExpiresAt: renewed.Expiry.Add(30 * 24 * time.Hour),
	}, nil
}
