package config

import "strings"

// AuthConfig contains OAuth client-credentials configuration for the
// learning-platform APIs. Either TokenURL or IssuerURL must be set; when
// only the issuer is given the token endpoint is resolved via OIDC
// discovery at startup.
type AuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	TokenURL     string `env:"TOKEN_URL"`
	IssuerURL    string `env:"ISSUER_URL"`
	Scope        string `env:"SCOPE" envDefault:""`

	// Enabled turns bearer-token auth on. Disabled is useful against local
	// platform stacks that don't enforce auth.
	Enabled bool `env:"ENABLED" envDefault:"true"`
}

// Scopes splits the space-delimited scope string.
func (a *AuthConfig) Scopes() []string {
	return strings.Fields(a.Scope)
}
