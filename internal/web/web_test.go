package web

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/tyemirov/bunledge/internal/authkit"
	"github.com/tyemirov/bunledge/internal/store"
	"github.com/tyemirov/bunledge/internal/timeback"
)

const (
	apiTestDomain   = "bunledge.example.auth0.com"
	apiTestAudience = "https://api.bunledge.example"
	apiTestKeyID    = "test-key-1"
)

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

// captureReporter records delivered completion events and signals each
// delivery so tests can wait out the detached reporting goroutine.
type captureReporter struct {
	mutex  sync.Mutex
	events []timeback.CompletionEvent
	signal chan struct{}
}

func newCaptureReporter() *captureReporter {
	return &captureReporter{signal: make(chan struct{}, 16)}
}

func (reporter *captureReporter) ReportCompletion(ctx context.Context, event timeback.CompletionEvent) error {
	reporter.mutex.Lock()
	reporter.events = append(reporter.events, event)
	reporter.mutex.Unlock()
	reporter.signal <- struct{}{}
	return nil
}

func (reporter *captureReporter) waitForEvent(t *testing.T) timeback.CompletionEvent {
	t.Helper()
	select {
	case <-reporter.signal:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a completion event")
	}
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return reporter.events[len(reporter.events)-1]
}

func (reporter *captureReporter) count() int {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return len(reporter.events)
}

type apiFixture struct {
	router     *gin.Engine
	reporter   *captureReporter
	privateKey *rsa.PrivateKey
}

func newAPIFixture(t *testing.T, policy StartPolicy) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	privateKey, generateErr := rsa.GenerateKey(rand.Reader, 2048)
	if generateErr != nil {
		t.Fatalf("generate rsa key: %v", generateErr)
	}

	jwksServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		document := map[string]interface{}{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"use": "sig",
					"alg": "RS256",
					"kid": apiTestKeyID,
					"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
				},
			},
		}
		_ = json.NewEncoder(writer).Encode(document)
	}))
	t.Cleanup(jwksServer.Close)

	target, parseErr := url.Parse(jwksServer.URL)
	if parseErr != nil {
		t.Fatalf("parse jwks server url: %v", parseErr)
	}
	jwksClient := &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second}

	databasePath := filepath.Join(t.TempDir(), "api_test.db")
	database, openErr := store.Open(context.Background(), "sqlite://"+databasePath)
	if openErr != nil {
		t.Fatalf("open test database: %v", openErr)
	}

	logger := zaptest.NewLogger(t)
	configuration := authkit.AuthConfig{Domain: apiTestDomain, Audience: apiTestAudience, HTTPTimeout: 5 * time.Second}
	cache := authkit.NewKeyCache(configuration, jwksClient)
	verifier := authkit.NewTokenVerifier(configuration, cache, authkit.NewSystemClock())

	users := store.NewUsers(database)
	provisioner := authkit.NewProvisioner(users, nil, logger)
	metrics := authkit.NewCounterMetrics()

	reporter := newCaptureReporter()
	router := gin.New()
	RegisterRoutes(router, Dependencies{
		Logger:        logger,
		Metrics:       metrics,
		Users:         users,
		Activities:    store.NewActivities(database),
		Progress:      store.NewProgress(database, nil),
		Exercises:     store.NewExercises(database),
		Assessments:   store.NewAssessments(database),
		Reporter:      reporter,
		RequireUser:   authkit.RequireUser(verifier, provisioner, logger, metrics),
		StartPolicy:   policy,
		ReportTimeout: 5 * time.Second,
	})

	return &apiFixture{
		router:     router,
		reporter:   reporter,
		privateKey: privateKey,
	}
}

func (fixture *apiFixture) mintToken(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://" + apiTestDomain + "/",
		Audience:  jwt.ClaimStrings{apiTestAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = apiTestKeyID
	signed, signErr := token.SignedString(fixture.privateKey)
	if signErr != nil {
		t.Fatalf("sign token: %v", signErr)
	}
	return signed
}

func (fixture *apiFixture) do(t *testing.T, method string, path string, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			t.Fatalf("marshal request body: %v", marshalErr)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)
	return recorder
}

func itoa(value int64) string {
	return strconv.FormatInt(value, 10)
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), target); decodeErr != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), decodeErr)
	}
}
