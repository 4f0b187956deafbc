// Package timeback reports activity completions to the external Timeback
// analytics service. Reporting is best effort: it runs after the update is
// persisted and never affects the enclosing request.
package timeback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUpstreamRejected indicates the Timeback API answered with a non-success status.
var ErrUpstreamRejected = errors.New("timeback.upstream_rejected")

// CompletionEvent carries the final state of a completed activity run.
type CompletionEvent struct {
	RunID            string    `json:"run_id"`
	UserEmail        string    `json:"user_email"`
	ActivityID       string    `json:"activity_id"`
	ActivityName     string    `json:"activity_name"`
	CourseCode       string    `json:"course_code"`
	CorrectQuestions int       `json:"correct_questions"`
	TotalQuestions   int       `json:"total_questions"`
	MasteredUnits    int       `json:"mastered_units"`
	XPEarned         *int      `json:"xp_earned,omitempty"`
	ElapsedMS        int64     `json:"elapsed_ms"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Reporter delivers completion events.
type Reporter interface {
	ReportCompletion(ctx context.Context, event CompletionEvent) error
}

// Config holds the Timeback API credentials and endpoint.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPTimeout  time.Duration
}

// Enabled reports whether a Timeback endpoint is configured.
func (configuration Config) Enabled() bool {
	return strings.TrimSpace(configuration.BaseURL) != ""
}

// Client posts completion events to the Timeback API.
type Client struct {
	configuration Config
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient constructs a Client. A nil httpClient falls back to a client with
// a bounded timeout; a nil logger is replaced with a no-op.
func NewClient(configuration Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := configuration.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		configuration: configuration,
		httpClient:    httpClient,
		logger:        logger,
	}
}

// ReportCompletion posts one completion event. A missing run id is filled in
// before sending so every delivery is individually traceable.
func (client *Client) ReportCompletion(ctx context.Context, event CompletionEvent) error {
	if event.RunID == "" {
		event.RunID = uuid.NewString()
	}

	payload, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return fmt.Errorf("timeback.report.marshal: %w", marshalErr)
	}

	endpoint := strings.TrimRight(client.configuration.BaseURL, "/") + "/v1/activity-completions"
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if requestErr != nil {
		return fmt.Errorf("timeback.report.request: %w", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	request.SetBasicAuth(client.configuration.ClientID, client.configuration.ClientSecret)

	response, responseErr := client.httpClient.Do(request)
	if responseErr != nil {
		return fmt.Errorf("timeback.report.send: %w", responseErr)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("timeback.report status %d: %w", response.StatusCode, ErrUpstreamRejected)
	}

	client.logger.Debug("completion reported",
		zap.String("code", "timeback.report.ok"),
		zap.String("run_id", event.RunID),
		zap.String("activity_id", event.ActivityID))
	return nil
}

// NopReporter drops every event. Used when Timeback is not configured.
type NopReporter struct{}

// ReportCompletion implements Reporter.
func (NopReporter) ReportCompletion(ctx context.Context, event CompletionEvent) error {
	return nil
}
