package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// DefaultBaseURL is the public Helium API.
const DefaultBaseURL = "https://api.helium.io"

var (
	// ErrHTTPStatus is returned for any non-2xx response.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrMalformedResponse is returned when a body cannot be decoded or lacks required fields.
	ErrMalformedResponse = errors.New("malformed response")
)

// HTTPClient is a paced JSON client for a single API base URL.
// Retries are left to the caller; every request is attempted exactly once.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	from      string
	logger    *zap.Logger
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        int
	Burst      int
	UserAgent  string
	From       string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Burst <= 0 {
		o.Burst = o.RPS
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "hotspotx"
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &HTTPClient{
		baseURL:   utils.TrimBaseURL(o.BaseURL),
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		userAgent: o.UserAgent,
		from:      o.From,
		logger:    logging.OrNop(o.Logger),
	}
}

// BaseURL returns the normalized base URL requests are sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// getJSON issues a GET for path with the given query and decodes the body into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.from != "" {
		req.Header.Set("From", c.from)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	// Always drain+close so the transport can reuse the connection.
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %w: %d", path, ErrHTTPStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: %w: %v", path, ErrMalformedResponse, err)
	}

	c.logger.Debug("API response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return nil
}
