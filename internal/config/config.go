package config

import "time"

type Config interface {
	EnvConfig
	OAuthConfig
	StorageConfig
	TokenConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type OAuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetRevocationURL() string
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	OAuth
	Storage
	Token
}

func New() Config {
	return mainConfig{}
}
