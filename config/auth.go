package config

import "strings"

// AuthConfig holds the background service-account credentials used for
// unattended token exchange when no user session is available, plus the OAuth
// client identity and the fallback token endpoint.
type AuthConfig struct {
	// ServiceUsername/ServicePassword drive the password-style grant used by
	// background jobs. Optional; without them the broker can only refresh
	// job-embedded credentials.
	ServiceUsername string `env:"SERVICE_ACCOUNT_USERNAME"`
	ServicePassword string `env:"SERVICE_ACCOUNT_PASSWORD"`

	// ClientID/ClientSecret identify this service at the token endpoint.
	ClientID     string `env:"OAUTH_CLIENT_ID"     envDefault:"dms-export"`
	ClientSecret string `env:"OAUTH_CLIENT_SECRET"`

	// TokenURL is the fallback token endpoint used when a session or job
	// credential does not carry its own.
	TokenURL string `env:"OAUTH_TOKEN_URL"`
}

// HasServiceAccount reports whether the password grant is configured.
func (a AuthConfig) HasServiceAccount() bool {
	return strings.TrimSpace(a.ServiceUsername) != "" && a.ServicePassword != ""
}
