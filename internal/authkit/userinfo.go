package authkit

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// UserProfile carries optional profile attributes from the tenant userinfo
// endpoint. The zero value means no attributes are known.
type UserProfile struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// DisplayName prefers the full name and falls back to the nickname.
func (profile UserProfile) DisplayName() string {
	if profile.Name != "" {
		return profile.Name
	}
	return profile.Nickname
}

// ProfileFetcher retrieves supplementary profile attributes for a bearer token.
type ProfileFetcher interface {
	Fetch(ctx context.Context, rawToken string) UserProfile
}

// UserInfoClient fetches profile attributes from the tenant userinfo endpoint.
// Every failure degrades to an empty profile; enrichment must never block
// user provisioning.
type UserInfoClient struct {
	userInfoURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewUserInfoClient constructs a UserInfoClient. A nil httpClient falls back
// to a client with a bounded timeout; a nil logger is replaced with a no-op.
func NewUserInfoClient(configuration AuthConfig, httpClient *http.Client, logger *zap.Logger) *UserInfoClient {
	if httpClient == nil {
		timeout := configuration.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserInfoClient{
		userInfoURL: configuration.UserInfoURL(),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Fetch returns profile attributes for the token, or an empty profile on any
// failure.
func (client *UserInfoClient) Fetch(ctx context.Context, rawToken string) UserProfile {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, client.userInfoURL, nil)
	if requestErr != nil {
		client.logger.Debug("userinfo request build failed",
			zap.String("code", "auth.userinfo.request"),
			zap.Error(requestErr))
		return UserProfile{}
	}
	request.Header.Set("Authorization", "Bearer "+rawToken)

	response, responseErr := client.httpClient.Do(request)
	if responseErr != nil {
		client.logger.Debug("userinfo fetch failed",
			zap.String("code", "auth.userinfo.fetch"),
			zap.Error(responseErr))
		return UserProfile{}
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		client.logger.Debug("userinfo fetch rejected",
			zap.String("code", "auth.userinfo.status"),
			zap.Int("status", response.StatusCode))
		return UserProfile{}
	}

	var profile UserProfile
	if decodeErr := json.NewDecoder(response.Body).Decode(&profile); decodeErr != nil {
		client.logger.Debug("userinfo decode failed",
			zap.String("code", "auth.userinfo.decode"),
			zap.Error(decodeErr))
		return UserProfile{}
	}
	return profile
}
