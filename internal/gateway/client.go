// Package gateway translates schedule, session and application operations
// into calls against the remote training service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/training-scheduler/internal/application"
)

// TokenSource supplies the bearer token attached to each request. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	AuthToken() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// AuthToken implements TokenSource.
func (f TokenFunc) AuthToken() string {
	if f == nil {
		return ""
	}
	return f()
}

// Client issues exactly one request per operation and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	requestID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTokenSource sets the bearer token provider.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// NewClient builds a gateway for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: DefaultHTTPClient(0),
		requestID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = application.DefaultLogger(c.logger)
	return c
}

// DefaultHTTPClient returns an HTTP client; a zero timeout waits indefinitely.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

type remoteFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success *bool                 `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *remoteFailure        `json:"error"`
	Meta    *application.PageMeta `json:"meta"`
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	// wantData requires a payload on success.
	wantData bool
}

type result struct {
	data   json.RawMessage
	meta   *application.PageMeta
	status int
}

func (c *Client) do(ctx context.Context, req call) (res result, err error) {
	if c == nil {
		return result{}, &Error{Code: CodeRequestFailed, Message: fallbackMessage(req.operation) + ": gateway not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := c.requestID()
	logger := application.ComponentLogger(ctx, c.logger, "gateway", req.operation,
		"method", req.method,
		"path", req.path,
		"request_id", requestID,
	)
	start := time.Now()
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "remote call failed", "error", err, "error_code", codeOf(err), "duration", time.Since(start))
			return
		}
		logger.DebugContext(ctx, "remote call succeeded", "duration", time.Since(start))
	}()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var payload io.Reader
	if req.body != nil {
		encoded, mErr := json.Marshal(req.body)
		if mErr != nil {
			return result{}, &Error{Code: CodeInvalidInput, Message: fallbackMessage(req.operation) + ": " + mErr.Error(), Err: mErr}
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, rErr := http.NewRequestWithContext(ctx, req.method, endpoint, payload)
	if rErr != nil {
		return result{}, &Error{Code: CodeInvalidInput, Message: fallbackMessage(req.operation) + ": " + rErr.Error(), Err: rErr}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AuthToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, dErr := c.httpClient.Do(httpReq)
	if dErr != nil {
		return result{}, transportError(req.operation, dErr)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return result{}, transportError(req.operation, readErr)
	}

	return decodeResponse(req, resp.StatusCode, raw)
}

func decodeResponse(req call, status int, raw []byte) (result, error) {
	trimmed := bytes.TrimSpace(raw)
	ok := status >= 200 && status < 300

	if !ok {
		var env envelope
		if len(trimmed) > 0 && json.Unmarshal(trimmed, &env) == nil && env.Error != nil {
			return result{}, statusError(req.operation, status, env.Error)
		}
		return result{}, statusError(req.operation, status, nil)
	}

	if len(trimmed) == 0 {
		if req.wantData {
			return result{}, malformedError(req.operation, status, errors.New("empty body"))
		}
		return result{}, nil
	}

	if trimmed[0] != '{' {
		// Bare payload without an envelope.
		if !json.Valid(trimmed) {
			return result{}, malformedError(req.operation, status, errors.New("invalid JSON"))
		}
		if req.wantData && bytes.Equal(trimmed, []byte("null")) {
			return result{}, malformedError(req.operation, status, errors.New("missing data"))
		}
		return result{data: json.RawMessage(trimmed), status: status}, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return result{}, malformedError(req.operation, status, err)
	}
	if env.Success == nil {
		// A bare object carrying only an error is a failure, not a payload.
		if env.Error != nil {
			return result{}, envelopeError(req.operation, status, env.Error)
		}
		return result{data: json.RawMessage(trimmed), status: status}, nil
	}
	if !*env.Success {
		return result{}, envelopeError(req.operation, status, env.Error)
	}
	if req.wantData && (len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null"))) {
		return result{}, malformedError(req.operation, status, errors.New("missing data"))
	}
	return result{data: env.Data, meta: env.Meta, status: status}, nil
}

func decodeInto[T any](operation string, res result) (T, error) {
	var out T
	if err := json.Unmarshal(res.data, &out); err != nil {
		return out, malformedError(operation, res.status, err)
	}
	return out, nil
}

// entity is a payload the service must identify.
type entity interface {
	EntityID() string
}

// decodeEntity is decodeInto for single entities; a payload without an id
// is malformed.
func decodeEntity[T entity](operation string, res result) (T, error) {
	out, err := decodeInto[T](operation, res)
	if err != nil {
		return out, err
	}
	if strings.TrimSpace(out.EntityID()) == "" {
		var zero T
		return zero, malformedError(operation, res.status, errors.New("payload has no id"))
	}
	return out, nil
}

func codeOf(err error) string {
	if gErr, ok := AsError(err); ok {
		return gErr.Code
	}
	return ""
}

func requireID(operation, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf("%s: %s is required", fallbackMessage(operation), field)}
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
