package authkit

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testDomain   = "bunledge.example.auth0.com"
	testAudience = "https://api.bunledge.example"
	testKeyID    = "test-key-1"
)

type fixedClock struct {
	timestamp time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.timestamp
}

// rewriteTransport sends every request to the test server regardless of the
// host named in the URL, so tenant URLs can stay realistic in tests.
type rewriteTransport struct {
	target *url.URL
}

func (transport rewriteTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	rewritten := request.Clone(request.Context())
	rewritten.URL.Scheme = transport.target.Scheme
	rewritten.URL.Host = transport.target.Host
	return http.DefaultTransport.RoundTrip(rewritten)
}

func newRewriteClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	target, parseErr := url.Parse(server.URL)
	if parseErr != nil {
		t.Fatalf("parse test server url: %v", parseErr)
	}
	return &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second}
}

func newTestAuthConfig() AuthConfig {
	return AuthConfig{
		Domain:      testDomain,
		Audience:    testAudience,
		HTTPTimeout: 5 * time.Second,
	}
}

func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	privateKey, generateErr := rsa.GenerateKey(rand.Reader, 2048)
	if generateErr != nil {
		t.Fatalf("generate rsa key: %v", generateErr)
	}
	return privateKey
}

func jwksJSON(t *testing.T, keyID string, publicKey *rsa.PublicKey) []byte {
	t.Helper()
	document := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": keyID,
				"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
			},
		},
	}
	payload, marshalErr := json.Marshal(document)
	if marshalErr != nil {
		t.Fatalf("marshal jwks: %v", marshalErr)
	}
	return payload
}

type tokenOptions struct {
	keyID     string
	subject   string
	audience  string
	issuer    string
	expiresAt time.Time
	issuedAt  time.Time
}

func mintRS256Token(t *testing.T, privateKey *rsa.PrivateKey, options tokenOptions) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   options.subject,
		Issuer:    options.issuer,
		Audience:  jwt.ClaimStrings{options.audience},
		IssuedAt:  jwt.NewNumericDate(options.issuedAt),
		ExpiresAt: jwt.NewNumericDate(options.expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = options.keyID
	signed, signErr := token.SignedString(privateKey)
	if signErr != nil {
		t.Fatalf("sign token: %v", signErr)
	}
	return signed
}

func defaultTokenOptions(subject string, now time.Time) tokenOptions {
	return tokenOptions{
		keyID:     testKeyID,
		subject:   subject,
		audience:  testAudience,
		issuer:    "https://" + testDomain + "/",
		issuedAt:  now,
		expiresAt: now.Add(time.Hour),
	}
}
