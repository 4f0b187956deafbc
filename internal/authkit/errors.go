package authkit

import "errors"

var (
	// ErrMissingDomain indicates the Auth0 tenant domain was not configured.
	ErrMissingDomain = errors.New("auth.config.missing_domain")
	// ErrMissingAudience indicates the expected token audience was not configured.
	ErrMissingAudience = errors.New("auth.config.missing_audience")
	// ErrJWKSUpstream indicates the JWKS endpoint was unreachable or returned a malformed payload.
	ErrJWKSUpstream = errors.New("auth.jwks.upstream")
	// ErrKeyNotFound indicates no published signing key matched the token's key id.
	ErrKeyNotFound = errors.New("auth.jwks.key_not_found")
	// ErrMalformedToken indicates the token header could not be parsed at all.
	ErrMalformedToken = errors.New("auth.token.malformed")
	// ErrTokenExpired indicates the token's expiry lies in the past.
	ErrTokenExpired = errors.New("auth.token.expired")
	// ErrInvalidAudience indicates the token was minted for a different audience.
	ErrInvalidAudience = errors.New("auth.token.invalid_audience")
	// ErrInvalidIssuer indicates the token was issued by an unexpected issuer.
	ErrInvalidIssuer = errors.New("auth.token.invalid_issuer")
	// ErrInvalidToken covers signature failures and any other verification failure.
	ErrInvalidToken = errors.New("auth.token.invalid")
	// ErrMissingSubject indicates a verified token without a subject claim.
	ErrMissingSubject = errors.New("auth.token.missing_subject")
	// ErrMissingBearer indicates the request carried no usable Authorization header.
	ErrMissingBearer = errors.New("auth.request.missing_bearer")
	// ErrAccountNotFound indicates no stored account matches the subject.
	ErrAccountNotFound = errors.New("auth.account.not_found")
	// ErrDuplicateSubject signals a uniqueness violation on the subject column.
	ErrDuplicateSubject = errors.New("auth.account.duplicate_subject")
	// ErrProvisioningFault indicates the requery after a lost insert race found nothing.
	ErrProvisioningFault = errors.New("auth.provision.inconsistent")
)
