package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifiedClaims is the result of a successful token verification.
type VerifiedClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenVerifier validates RS256 bearer tokens against the tenant key set.
type TokenVerifier struct {
	configuration AuthConfig
	keys          *KeyCache
	clock         Clock
}

// NewTokenVerifier constructs a TokenVerifier. A nil clock falls back to the
// system clock.
func NewTokenVerifier(configuration AuthConfig, keys *KeyCache, clock Clock) *TokenVerifier {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenVerifier{
		configuration: configuration,
		keys:          keys,
		clock:         clock,
	}
}

// Verify checks signature, audience, issuer, and expiry, and returns the
// subject claim. Only RS256 signatures are accepted.
func (verifier *TokenVerifier) Verify(ctx context.Context, rawToken string) (VerifiedClaims, error) {
	if strings.TrimSpace(verifier.configuration.Domain) == "" {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrMissingDomain)
	}
	if strings.TrimSpace(verifier.configuration.Audience) == "" {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrMissingAudience)
	}
	if strings.TrimSpace(rawToken) == "" {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrMalformedToken)
	}

	parsedToken, parseErr := jwt.ParseWithClaims(rawToken, &jwt.RegisteredClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		keyID, ok := parsed.Header["kid"].(string)
		if !ok || keyID == "" {
			return nil, fmt.Errorf("auth.verify.missing_kid: %w", ErrKeyNotFound)
		}
		return verifier.keys.SigningKey(ctx, keyID)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(verifier.configuration.Audience),
		jwt.WithIssuer(verifier.configuration.Issuer()),
		jwt.WithTimeFunc(verifier.clock.Now),
	)
	if parseErr != nil {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", classifyParseError(parseErr))
	}
	if parsedToken == nil || !parsedToken.Valid {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return VerifiedClaims{}, fmt.Errorf("auth.verify: %w", ErrMissingSubject)
	}

	verified := VerifiedClaims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}
	return verified, nil
}

// classifyParseError folds golang-jwt errors into the authkit taxonomy. Key
// cache failures pass through unchanged so configuration and upstream faults
// stay distinguishable from bad credentials.
func classifyParseError(parseErr error) error {
	switch {
	case errors.Is(parseErr, ErrMissingDomain),
		errors.Is(parseErr, ErrJWKSUpstream),
		errors.Is(parseErr, ErrKeyNotFound):
		return parseErr
	case errors.Is(parseErr, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(parseErr, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(parseErr, jwt.ErrTokenInvalidAudience):
		return ErrInvalidAudience
	case errors.Is(parseErr, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidIssuer
	default:
		return ErrInvalidToken
	}
}
