package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 30 * time.Second

	// UserAgent is sent with every request
	UserAgent = "fintrack-go/1.0.0"

	authHeaderKey = "Authorization"
	contentType   = "application/json"
)

// TokenSource supplies a valid bearer token, refreshing it when needed
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPTransport handles JSON communication with the Google REST endpoints
type HTTPTransport struct {
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	tokens      TokenSource
	logger      types.Logger
	hooks       *types.Hooks
}

// Options for HTTP transport
type Options struct {
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	TokenSource TokenSource
	Logger      types.Logger
	Hooks       *types.Hooks
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(opts *Options) *HTTPTransport {
	if opts == nil {
		opts = &Options{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	// Create retry client if configured
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = httpClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		// Non-2xx responses are mapped by handleHTTPError, not by the retry client
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		} else {
			retryClient.Logger = nil
		}
	}

	headers := map[string]string{
		"Accept":       contentType,
		"Content-Type": contentType,
		"User-Agent":   UserAgent,
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPTransport{
		httpClient:  httpClient,
		retryClient: retryClient,
		headers:     headers,
		tokens:      opts.TokenSource,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}
}

// SetTokenSource sets the bearer token source used by DoAuthenticated
func (t *HTTPTransport) SetTokenSource(tokens TokenSource) {
	t.tokens = tokens
}

// DoAuthenticated sends a request carrying the current bearer token
func (t *HTTPTransport) DoAuthenticated(ctx context.Context, method, url string, body, result interface{}) error {
	if t.tokens == nil {
		return types.ErrNotAuthenticated
	}

	token, err := t.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return types.ErrNotAuthenticated
	}

	return t.do(ctx, method, url, token, body, result)
}

// Do sends an unauthenticated request. body and result may be nil.
func (t *HTTPTransport) Do(ctx context.Context, method, url string, body, result interface{}) error {
	return t.do(ctx, method, url, "", body, result)
}

func (t *HTTPTransport) do(ctx context.Context, method, url, token string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	if token != "" {
		httpReq.Header.Set(authHeaderKey, "Bearer "+token)
	}

	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	if t.logger != nil {
		t.logger.Debug("HTTP request", "method", method, "url", redactQuery(url))
	}

	start := time.Now()
	resp, err := t.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = &types.Error{
				Code:    "NETWORK_ERROR",
				Message: fmt.Sprintf("network error: %v", err),
				Err:     types.ErrNetwork,
			}
		}
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return err
	}
	defer resp.Body.Close()

	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if t.logger != nil {
		t.logger.Debug("HTTP response", "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := handleHTTPError(resp.StatusCode, respBody)
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, httpErr)
		}
		return httpErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return errors.Wrap(err, "failed to unmarshal result")
		}
	}

	return nil
}

// doRequest executes the HTTP request with retry if configured
func (t *HTTPTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// googleError is the error envelope shared by Identity Toolkit, Secure Token and Firestore
type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// handleHTTPError maps a non-2xx response to a typed error. The backend status
// text is kept in Message so callers can translate it.
func handleHTTPError(statusCode int, body []byte) error {
	var errResp googleError
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Error.Message
	status := errResp.Error.Status

	switch statusCode {
	case http.StatusUnauthorized:
		return &types.Error{
			Code:       "UNAUTHENTICATED",
			Message:    msg,
			StatusCode: statusCode,
			Err:        types.ErrNotAuthenticated,
		}
	case http.StatusForbidden:
		if status == "" {
			status = "PERMISSION_DENIED"
		}
		return &types.Error{
			Code:       status,
			Message:    joinStatus(status, msg),
			StatusCode: statusCode,
			Err:        types.ErrPermissionDenied,
		}
	case http.StatusNotFound:
		return &types.Error{
			Code:       "NOT_FOUND",
			Message:    msg,
			StatusCode: statusCode,
			Err:        types.ErrNotFound,
		}
	case http.StatusTooManyRequests:
		return &types.Error{
			Code:       "RATE_LIMITED",
			Message:    msg,
			StatusCode: statusCode,
			Err:        types.ErrRateLimited,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &types.Error{
			Code:       "TIMEOUT",
			Message:    msg,
			StatusCode: statusCode,
			Err:        types.ErrTimeout,
		}
	case http.StatusBadRequest:
		code := status
		if code == "" {
			code = "BAD_REQUEST"
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP error: %d", statusCode)
		}
		return &types.Error{
			Code:       code,
			Message:    msg,
			StatusCode: statusCode,
		}
	default:
		if statusCode >= 500 {
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := http.StatusText(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}
			if msg != "" {
				baseMsg = fmt.Sprintf("%s: %s", baseMsg, msg)
			}
			return &types.Error{
				Code:       "SERVER_ERROR",
				Message:    baseMsg,
				StatusCode: statusCode,
				Err:        types.ErrServerError,
			}
		}
		return &types.Error{
			Code:       "HTTP_ERROR",
			Message:    fmt.Sprintf("HTTP error: %d", statusCode),
			StatusCode: statusCode,
		}
	}
}

func joinStatus(status, msg string) string {
	if msg == "" {
		return status
	}
	return status + ": " + msg
}

// redactQuery drops the query string so API keys stay out of logs
func redactQuery(url string) string {
	base, _, _ := strings.Cut(url, "?")
	return base
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
