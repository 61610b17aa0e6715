// Package hrapi is the access layer for the HR backend: one HTTP transport,
// the envelope normalizer, and typed clients for employees, attendance and the
// dashboard. Every failure is reported as *Error.
package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/hrconsole/internal/envutil"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://hrmslitebackend-4.onrender.com/api"
	// DefaultTimeout applies to hosted backends. A zero Config.Timeout leaves the call unbounded.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
)

var tracer = otel.Tracer("github.com/phillip-england/hrconsole/internal/hrapi")

// TokenProvider returns the bearer token for the next request. An empty token
// sends no Authorization header.
type TokenProvider func(ctx context.Context) (string, error)

func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// TokenSource is anything that can look up a persisted value by key.
type TokenSource interface {
	Get(key string) (string, error)
}

// StoredToken reads key from src on every request.
func StoredToken(src TokenSource, key string) TokenProvider {
	return func(context.Context) (string, error) {
		return src.Get(key)
	}
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Token      TokenProvider
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

func DefaultConfigFromEnv() Config {
	return Config{
		BaseURL: envutil.OrDefault("HR_API_URL", DefaultBaseURL),
		Timeout: DefaultTimeout,
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
	logger     *logrus.Logger
}

func New(cfg Config) *Client {
	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	httpClient.Timeout = cfg.Timeout

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	token := cfg.Token
	if token == nil {
		token = StaticToken("")
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Employees() *EmployeeClient {
	return &EmployeeClient{c: c}
}

func (c *Client) Attendance() *AttendanceClient {
	return &AttendanceClient{c: c}
}

func (c *Client) Dashboard() *DashboardClient {
	return &DashboardClient{c: c}
}

// Do performs a single round trip and returns the normalized payload.
// A nil body sends no request body.
func (c *Client) Do(ctx context.Context, method, path string, params Params, body any) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "hrapi "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("hrapi.path", path),
		),
	)
	defer span.End()

	payload, status, err := c.roundTrip(ctx, method, path, params, body)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logFailure(method, path, err)
		return nil, err
	}
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, params Params, body any) (json.RawMessage, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, unexpected(err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if query := params.Encode(); query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, unexpected(err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, 0, unexpected(err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	}).Debug("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, unreachable(c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := unreachable(c.baseURL, err)
		apiErr.Status = resp.StatusCode
		return nil, resp.StatusCode, apiErr
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
	}).Debug("api response")

	payload, err := normalize(resp.StatusCode, raw)
	return payload, resp.StatusCode, err
}

func (c *Client) logFailure(method, path string, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindRejected {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": apiErr.Status,
		}).Warn(apiErr.Message)
		return
	}
	logging.LogError(c.logger, "hrapi", "Do", method+" "+path, nil, err)
}

// decode unmarshals a payload into out. Null and empty payloads leave out untouched.
func decode(raw json.RawMessage, out any) error {
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unexpected(err)
	}
	return nil
}

// decodeList treats any payload that is not a JSON array as an empty list.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}, nil
	}
	out := []T{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, unexpected(err)
	}
	return out, nil
}
