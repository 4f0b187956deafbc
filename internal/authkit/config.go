package authkit

import (
	"fmt"
	"strings"
	"time"
)

// AuthConfig configures Auth0 tenant endpoints and outbound call limits.
type AuthConfig struct {
	Domain      string
	Audience    string
	HTTPTimeout time.Duration
}

// JWKSURL returns the tenant's published signing key endpoint.
func (configuration AuthConfig) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", configuration.Domain)
}

// Issuer returns the issuer value expected inside verified tokens.
func (configuration AuthConfig) Issuer() string {
	return fmt.Sprintf("https://%s/", configuration.Domain)
}

// UserInfoURL returns the tenant's profile endpoint.
func (configuration AuthConfig) UserInfoURL() string {
	return fmt.Sprintf("https://%s/userinfo", configuration.Domain)
}

// Validate reports deployment misconfiguration before any request is served.
func (configuration AuthConfig) Validate() error {
	if strings.TrimSpace(configuration.Domain) == "" {
		return fmt.Errorf("auth.config: %w", ErrMissingDomain)
	}
	if strings.TrimSpace(configuration.Audience) == "" {
		return fmt.Errorf("auth.config: %w", ErrMissingAudience)
	}
	return nil
}
