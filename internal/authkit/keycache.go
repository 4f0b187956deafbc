package authkit

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// KeyCache fetches the tenant JWKS once and memoizes it for the process
// lifetime. A key rotated at the tenant after the first fetch is not visible
// until restart.
type KeyCache struct {
	domain     string
	jwksURL    string
	httpClient *http.Client

	mutex     sync.Mutex
	keys      map[string]*rsa.PublicKey
	populated bool
}

// NewKeyCache constructs a KeyCache for the given Auth0 tenant domain. A nil
// httpClient falls back to a client with a bounded timeout.
func NewKeyCache(configuration AuthConfig, httpClient *http.Client) *KeyCache {
	if httpClient == nil {
		timeout := configuration.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &KeyCache{
		domain:     configuration.Domain,
		jwksURL:    configuration.JWKSURL(),
		httpClient: httpClient,
	}
}

// SigningKey returns the RSA public key published under the given key id.
func (cache *KeyCache) SigningKey(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	keys, keysErr := cache.SigningKeys(ctx)
	if keysErr != nil {
		return nil, keysErr
	}
	key, ok := keys[keyID]
	if !ok {
		return nil, fmt.Errorf("jwks.lookup %q: %w", keyID, ErrKeyNotFound)
	}
	return key, nil
}

// SigningKeys returns the memoized key set, fetching it on the first call.
func (cache *KeyCache) SigningKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	if cache.populated {
		return cache.keys, nil
	}
	if strings.TrimSpace(cache.domain) == "" {
		return nil, fmt.Errorf("jwks.fetch: %w", ErrMissingDomain)
	}
	keys, fetchErr := cache.fetchKeys(ctx)
	if fetchErr != nil {
		return nil, fetchErr
	}
	cache.keys = keys
	cache.populated = true
	return cache.keys, nil
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	KeyType  string `json:"kty"`
	KeyID    string `json:"kid"`
	Use      string `json:"use"`
	Modulus  string `json:"n"`
	Exponent string `json:"e"`
}

func (cache *KeyCache) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, cache.jwksURL, nil)
	if requestErr != nil {
		return nil, fmt.Errorf("jwks.fetch: %w", requestErr)
	}
	response, responseErr := cache.httpClient.Do(request)
	if responseErr != nil {
		return nil, fmt.Errorf("jwks.fetch: %w: %v", ErrJWKSUpstream, responseErr)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks.fetch status %d: %w", response.StatusCode, ErrJWKSUpstream)
	}

	var document jwksDocument
	if decodeErr := json.NewDecoder(response.Body).Decode(&document); decodeErr != nil {
		return nil, fmt.Errorf("jwks.decode: %w: %v", ErrJWKSUpstream, decodeErr)
	}

	keys := make(map[string]*rsa.PublicKey, len(document.Keys))
	for _, entry := range document.Keys {
		if entry.KeyType != "RSA" || entry.KeyID == "" {
			continue
		}
		if entry.Use != "" && entry.Use != "sig" {
			continue
		}
		publicKey, keyErr := parseRSAPublicKey(entry)
		if keyErr != nil {
			return nil, fmt.Errorf("jwks.decode key %q: %w: %v", entry.KeyID, ErrJWKSUpstream, keyErr)
		}
		keys[entry.KeyID] = publicKey
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks.decode: no usable RSA keys: %w", ErrJWKSUpstream)
	}
	return keys, nil
}

func parseRSAPublicKey(entry jwksKey) (*rsa.PublicKey, error) {
	modulusBytes, modulusErr := base64.RawURLEncoding.DecodeString(entry.Modulus)
	if modulusErr != nil {
		return nil, fmt.Errorf("invalid modulus: %w", modulusErr)
	}
	exponentBytes, exponentErr := base64.RawURLEncoding.DecodeString(entry.Exponent)
	if exponentErr != nil {
		return nil, fmt.Errorf("invalid exponent: %w", exponentErr)
	}
	if len(modulusBytes) == 0 || len(exponentBytes) == 0 {
		return nil, fmt.Errorf("empty modulus or exponent")
	}
	exponent := new(big.Int).SetBytes(exponentBytes)
	if !exponent.IsInt64() || exponent.Int64() <= 0 {
		return nil, fmt.Errorf("exponent out of range")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulusBytes),
		E: int(exponent.Int64()),
	}, nil
}
