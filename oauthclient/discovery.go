package oauthclient

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
)

// Discover reads the issuer's /.well-known/openid-configuration document.
// revocationURL overrides the revocation_endpoint it advertises when set.
func Discover(ctx context.Context, httpClient *http.Client, issuer, revocationURL string) (*Discovery, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to create OIDC provider for %s", issuer), errors.ErrDiscovery)
	}

	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to read discovery claims"), errors.ErrDiscovery)
	}

	endpoint := provider.Endpoint()
	d := &Discovery{
		Issuer:        issuer,
		AuthURL:       endpoint.AuthURL,
		TokenURL:      endpoint.TokenURL,
		RevocationURL: claims.RevocationEndpoint,
	}
	if revocationURL != "" {
		d.RevocationURL = revocationURL
	}
	if d.TokenURL == "" {
		return nil, errors.Wrapf(errors.ErrDiscovery, "issuer %s advertises no token endpoint", issuer)
	}
	return d, nil
}
