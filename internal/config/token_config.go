package config

import "time"

type TokenConfig interface {
	GetRefreshBuffer() time.Duration
	GetAutoRefreshDisabled() bool
	GetWakeCheckInterval() time.Duration
	GetInitialCredentialFile() string
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetRefreshBuffer() time.Duration {
	return GetEnvDuration("TOKEN_REFRESH_BUFFER", time.Minute)
}

func (Token) GetAutoRefreshDisabled() bool {
	return GetEnvBool("DISABLE_AUTO_REFRESH", false)
}

// GetWakeCheckInterval is how often the wall clock is sampled to detect a
// system sleep. Zero disables the check.
func (Token) GetWakeCheckInterval() time.Duration {
	return GetEnvDuration("WAKE_CHECK_INTERVAL", 30*time.Second)
}

func (Token) GetInitialCredentialFile() string {
	return GetEnv("INITIAL_CREDENTIAL_FILE", "")
}
