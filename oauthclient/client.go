// Package oauthclient talks to the authorization server on behalf of the token
// manager: refresh_token grants, RFC 7009 revocation and OpenID discovery.
package oauthclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 1 << 16
)

type Client struct {
	httpClient *http.Client
	clock      clockwork.Clock
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock sets the clock used to stamp issuedAt on refreshed credentials.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the client used for every request, including discovery.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Refresh performs a refresh_token grant. The returned credential carries the
// server's refresh token, or none if the server did not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string, cfg Config, d *Discovery) (*credential.Credential, error) {
	if d == nil || d.TokenURL == "" {
		return nil, errors.ErrConfigNotReady
	}
	if refreshToken == "" {
		return nil, errors.ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := cfg.oauth2Config(d).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "refresh at %s", d.TokenURL), errors.ErrRefresh)
	}

	// x/oauth2 copies the request's refresh token into the response when the
	// server omits it; report only what the server actually sent.
	if rt, ok := tok.Extra("refresh_token").(string); !ok || rt == "" {
		tok.RefreshToken = ""
	}

	cred := credential.FromOAuth2Token(tok, c.clock.Now())
	if err := cred.Validate(); err != nil {
		return nil, errors.Mark(err, errors.ErrRefresh)
	}
	return cred, nil
}

// Revoke asks the revocation endpoint to invalidate accessToken.
func (c *Client) Revoke(ctx context.Context, accessToken string, cfg Config, d *Discovery) error {
	if d == nil {
		return errors.ErrConfigNotReady
	}
	if d.RevocationURL == "" {
		return errors.Wrapf(errors.ErrUnsupported, "issuer %s has no revocation endpoint", d.Issuer)
	}
	return c.revokeToken(ctx, d.RevocationURL, accessToken, AccessTokenHint, cfg)
}

func (c *Client) revokeToken(ctx context.Context, revokeURL, token string, hint TokenTypeHint, cfg Config) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", string(hint))
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Mark(err, errors.ErrRevoke)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "revoke at %s", revokeURL), errors.ErrRevoke)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respErr := &ResponseError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(body, &respErr.ErrorResponse); err != nil {
		log.Debug().Int("status", resp.StatusCode).Msg("Revocation endpoint returned a non-JSON error body")
	}
	return errors.Mark(respErr, errors.ErrRevoke)
}
