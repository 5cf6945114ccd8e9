package oauthclient

import (
	"golang.org/x/oauth2"
)

// Config identifies the client to the authorization server.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Discovery holds the authorization server endpoints, usually read from its
// OpenID configuration document.
type Discovery struct {
	Issuer        string
	AuthURL       string
	TokenURL      string
	RevocationURL string
}

func (c Config) oauth2Config(d *Discovery) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  d.AuthURL,
			TokenURL: d.TokenURL,
		},
	}
}
