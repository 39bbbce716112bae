package stafflinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound matches any 404 response via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches any 401 response via errors.Is.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client is the Staffline REST API gateway client.
type Client struct {
	BaseURL     string
	BearerToken string
	UserAgent   string
	HTTPClient  *http.Client
	Timeout     time.Duration
	// Limiter throttles outgoing requests when set.
	Limiter *rate.Limiter
	// OnUnauthorized is called on every 401 before the error is returned.
	// The session owner uses it to force a logout.
	OnUnauthorized func()
	Logger         logrus.FieldLogger
}

// New creates a client with sane defaults.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BearerToken: token,
		UserAgent:   "staffline-sdk/0.1",
		Timeout:     10 * time.Second,
	}
}

// WithRateLimit installs a token bucket limiter. A non-positive rps disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.Limiter = nil
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Message extracts the server's error message from the envelope, falling back
// to the status text.
func (e *APIError) Message() string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.ToLower(http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the gateway.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger().WithFields(logrus.Fields{"method": method, "path": endpoint, "request_id": requestID}).WithError(err).Warn("gateway request failed")
		return err
	}
	defer resp.Body.Close()
	c.logger().WithFields(logrus.Fields{
		"method":     method,
		"path":       endpoint,
		"status":     resp.StatusCode,
		"request_id": requestID,
		"elapsed":    time.Since(started).String(),
	}).Debug("gateway request")
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		if resp.StatusCode == http.StatusUnauthorized && c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (c *Client) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
