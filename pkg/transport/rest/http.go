package rest

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/saturnines/domo-export/pkg/errors"
)

const (
	UserAgent      = "domo-export"
	DefaultTimeout = 30 * time.Second

	// longest response body copied into an HTTPError
	maxErrorBody = 512
)

// ClientOption configures a resty client
type ClientOption func(*resty.Client)

// NewClient creates a resty client rooted at baseURL.
// Requests are never retried; every response is logged at debug level.
func NewClient(baseURL string, logger *zap.Logger, options ...ClientOption) *resty.Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetHeader("User-Agent", UserAgent)
	c.SetTimeout(DefaultTimeout)
	c.SetRetryCount(0)
	c.SetLogger(logger.Sugar())

	c.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.Debug("HTTP",
			zap.String("method", res.Request.Method),
			zap.String("url", res.Request.URL),
			zap.Int("status", res.StatusCode()),
			zap.Duration("took", res.Time()),
		)
		return nil
	})
	c.OnError(func(req *resty.Request, err error) {
		logger.Debug("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err),
		)
	})

	for _, option := range options {
		option(c)
	}

	return c
}

// WithTimeout sets the timeout of every request. Zero keeps the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *resty.Client) {
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *resty.Client) {
		c.SetTransport(transport)
	}
}

// CheckResponse returns an *errors.HTTPError for any non-2xx response
func CheckResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}

	body := res.String()
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}

	return &errors.HTTPError{
		StatusCode: res.StatusCode(),
		Status:     res.Status(),
		Body:       body,
	}
}
