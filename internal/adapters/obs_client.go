package adapters

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"obsctl/internal/shared"
	"obsctl/internal/types"
)

const defaultOBSTimeout = 60 * time.Second
const defaultOBSRetries = 3
const defaultOBSRetryDelay = 200 * time.Millisecond
const maxOBSRetryDelay = 2 * time.Second

// OBSConfig configures an OBSClient. Zero values select the defaults.
type OBSConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	// Retries is the number of attempts made for a GET request.
	Retries           int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

func (c OBSConfig) String() string {
	return fmt.Sprintf("OBSConfig{BaseURL:%s Username:%s Password:%s Timeout:%s Retries:%d RetryDelay:%s RequestsPerSecond:%g}",
		c.BaseURL, c.Username, shared.RedactSecret(c.Password), c.Timeout, c.Retries, c.RetryDelay, c.RequestsPerSecond)
}

func (c OBSConfig) GoString() string {
	return c.String()
}

// OBSClient talks to the REST API of an Open Build Service instance. It is
// safe for concurrent use.
type OBSClient struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	limiter    *rate.Limiter
	tracer     trace.Tracer
}

func NewOBSClient(cfg OBSConfig) (*OBSClient, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: normalizeOBSTimeout(cfg.Timeout)}
	}
	return &OBSClient{
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		retries:    normalizeOBSRetries(cfg.Retries),
		retryDelay: normalizeOBSRetryDelay(cfg.RetryDelay),
		limiter:    newOBSLimiter(cfg.RequestsPerSecond),
		tracer:     otel.Tracer("obsctl/internal/adapters"),
	}, nil
}

// BaseURL returns the API root the client was configured with.
func (c *OBSClient) BaseURL() string {
	return c.baseURL.String()
}

func (c *OBSClient) Username() string {
	return c.username
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &types.OBSError{Kind: types.ErrorKindInvalidURL, Cause: errors.New("api url is empty")}
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, &types.OBSError{Kind: types.ErrorKindInvalidURL, URL: trimmed, Cause: err}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, &types.OBSError{Kind: types.ErrorKindInvalidURL, URL: trimmed, Cause: fmt.Errorf("unsupported scheme %q", base.Scheme)}
	}
	if base.Host == "" {
		return nil, &types.OBSError{Kind: types.ErrorKindInvalidURL, URL: trimmed, Cause: errors.New("missing host")}
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""
	base.User = nil
	return base, nil
}

func newOBSLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func normalizeOBSTimeout(value time.Duration) time.Duration {
	if value <= 0 {
		return defaultOBSTimeout
	}
	return value
}

func normalizeOBSRetries(value int) int {
	if value <= 0 {
		return defaultOBSRetries
	}
	return value
}

func normalizeOBSRetryDelay(value time.Duration) time.Duration {
	if value <= 0 {
		return defaultOBSRetryDelay
	}
	return value
}
