package authkit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CurrentUserContextKey is where RequireUser stores the resolved account.
const CurrentUserContextKey = "current_user"

// UserResolver maps a verified subject to an application account.
type UserResolver interface {
	ResolveUser(ctx context.Context, subject string, rawToken string) (Account, error)
}

// RequireUser validates the bearer token, provisions the user on first login,
// and injects the resolved account. Credential failures answer 401;
// configuration, upstream, and provisioning faults answer 500.
func RequireUser(verifier *TokenVerifier, resolver UserResolver, logger *zap.Logger, metrics MetricsRecorder) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		rawToken, tokenErr := bearerToken(contextGin.Request)
		if tokenErr != nil {
			metrics.Increment("auth.request.missing_bearer")
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingBearer.Error()})
			return
		}

		claims, verifyErr := verifier.Verify(contextGin.Request.Context(), rawToken)
		if verifyErr != nil {
			if isServerSideAuthFault(verifyErr) {
				metrics.Increment("auth.request.fault")
				logger.Error("authentication pipeline fault",
					zap.String("code", "auth.request.fault"),
					zap.Error(verifyErr))
				contextGin.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			metrics.Increment("auth.request.unauthorized")
			logger.Warn("rejected bearer token",
				zap.String("code", "auth.request.unauthorized"),
				zap.Error(verifyErr))
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedCode(verifyErr)})
			return
		}

		account, resolveErr := resolver.ResolveUser(contextGin.Request.Context(), claims.Subject, rawToken)
		if resolveErr != nil {
			metrics.Increment("auth.request.fault")
			logger.Error("user provisioning failed",
				zap.String("code", "auth.provision.failed"),
				zap.String("subject", claims.Subject),
				zap.Error(resolveErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		metrics.Increment("auth.request.ok")
		contextGin.Set(CurrentUserContextKey, account)
		contextGin.Next()
	}
}

// CurrentAccount reads the account injected by RequireUser.
func CurrentAccount(contextGin *gin.Context) (Account, bool) {
	value, found := contextGin.Get(CurrentUserContextKey)
	if !found {
		return Account{}, false
	}
	account, ok := value.(Account)
	if !ok || account.Subject == "" {
		return Account{}, false
	}
	return account, true
}

func bearerToken(request *http.Request) (string, error) {
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingBearer
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingBearer
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}

func isServerSideAuthFault(verifyErr error) bool {
	return errors.Is(verifyErr, ErrMissingDomain) ||
		errors.Is(verifyErr, ErrMissingAudience) ||
		errors.Is(verifyErr, ErrJWKSUpstream)
}

func unauthorizedCode(verifyErr error) string {
	for _, sentinel := range []error{
		ErrMalformedToken,
		ErrKeyNotFound,
		ErrTokenExpired,
		ErrInvalidAudience,
		ErrInvalidIssuer,
		ErrMissingSubject,
	} {
		if errors.Is(verifyErr, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrInvalidToken.Error()
}
