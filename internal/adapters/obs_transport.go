package adapters

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"obsctl/internal/types"
)

const maxOBSErrorBody = 64 << 10

type queryParam struct {
	key   string
	value string
}

// query keeps parameters in insertion order; OBS is sensitive to repeated
// keys such as package=a&package=b.
type query []queryParam

func (q query) add(key string, value string) query {
	return append(q, queryParam{key: key, value: value})
}

func (q query) addIf(cond bool, key string, value string) query {
	if !cond {
		return q
	}
	return q.add(key, value)
}

func (q query) encode() string {
	parts := make([]string, 0, len(q))
	for _, param := range q {
		parts = append(parts, url.QueryEscape(param.key)+"="+url.QueryEscape(param.value))
	}
	return strings.Join(parts, "&")
}

type obsRequest struct {
	method      string
	path        []string
	query       query
	body        io.Reader
	contentType string
}

func (c *OBSClient) resourceURL(path []string, q query) string {
	escaped := make([]string, 0, len(path))
	for _, segment := range path {
		escaped = append(escaped, url.PathEscape(segment))
	}
	target := c.baseURL.String() + "/" + strings.Join(escaped, "/")
	if len(q) > 0 {
		target += "?" + q.encode()
	}
	return target
}

// do sends the request and returns the response of the first 2xx attempt.
// The caller owns the response body. Only GET requests are retried.
func (c *OBSClient) do(ctx context.Context, req obsRequest) (*http.Response, error) {
	target := c.resourceURL(req.path, req.query)
	ctx, span := c.tracer.Start(ctx, "obs."+strings.ToLower(req.method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.full", target),
		))
	defer span.End()

	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.retries
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.obsRetryDelay(attempt - 1)
			log.Debug().
				Str("method", req.method).
				Str("url", target).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying obs request")
			if err := sleepContext(ctx, delay); err != nil {
				break
			}
		}
		resp, retry, err := c.doOnce(ctx, req, target)
		if err == nil {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "obs request failed")
	return nil, lastErr
}

func (c *OBSClient) doOnce(ctx context.Context, req obsRequest, target string) (*http.Response, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, &types.OBSError{Kind: types.ErrorKindTransport, Method: req.method, URL: target, Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, false, &types.OBSError{Kind: types.ErrorKindInvalidURL, Method: req.method, URL: target, Cause: err}
	}
	httpReq.SetBasicAuth(c.username, c.password)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	obsRequestDuration.WithLabelValues(req.method).Observe(time.Since(start).Seconds())
	if err != nil {
		obsRequestsTotal.WithLabelValues(req.method, "error").Inc()
		log.Debug().Str("method", req.method).Str("url", target).Err(err).Msg("obs request failed")
		return nil, true, &types.OBSError{Kind: types.ErrorKindTransport, Method: req.method, URL: target, Cause: err}
	}
	obsRequestsTotal.WithLabelValues(req.method, strconv.Itoa(resp.StatusCode)).Inc()
	log.Debug().
		Str("method", req.method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("obs request")
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, false, nil
	}
	defer resp.Body.Close()
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return nil, retry, newHTTPError(req.method, target, resp)
}

// newHTTPError reads a bounded excerpt of a failed response and parses it as
// an OBS status document when possible.
func newHTTPError(method string, target string, resp *http.Response) *types.OBSError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxOBSErrorBody))
	obsErr := &types.OBSError{
		Kind:       types.ErrorKindHTTP,
		Method:     method,
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
	var status types.APIStatus
	if err := xml.Unmarshal(data, &status); err == nil && status.Code != "" {
		obsErr.API = &status
	}
	return obsErr
}

func (c *OBSClient) obsRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay * time.Duration(1<<attempt)
	if delay > maxOBSRetryDelay {
		delay = maxOBSRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *OBSClient) get(ctx context.Context, path []string, q query) (*http.Response, error) {
	return c.do(ctx, obsRequest{method: http.MethodGet, path: path, query: q})
}

func (c *OBSClient) getXML(ctx context.Context, path []string, q query, v any) error {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	return readXML(resp, v)
}

// sendXML issues a non-idempotent request with an XML body and decodes the
// <status> reply.
func (c *OBSClient) sendXML(ctx context.Context, method string, path []string, q query, body any) (types.APIStatus, error) {
	data, err := encodeXML(body)
	if err != nil {
		return types.APIStatus{}, err
	}
	resp, err := c.do(ctx, obsRequest{
		method:      method,
		path:        path,
		query:       q,
		body:        bytes.NewReader(data),
		contentType: "application/xml",
	})
	if err != nil {
		return types.APIStatus{}, err
	}
	return readStatus(resp)
}

// command issues a request without a body whose reply is a <status>
// document.
func (c *OBSClient) command(ctx context.Context, method string, path []string, q query) (types.APIStatus, error) {
	resp, err := c.do(ctx, obsRequest{method: method, path: path, query: q})
	if err != nil {
		return types.APIStatus{}, err
	}
	return readStatus(resp)
}

func readStatus(resp *http.Response) (types.APIStatus, error) {
	var status types.APIStatus
	if err := readXML(resp, &status); err != nil {
		return types.APIStatus{}, err
	}
	if status.Code != "ok" {
		return status, &types.OBSError{
			Kind:   types.ErrorKindUnexpected,
			Method: resp.Request.Method,
			URL:    resp.Request.URL.String(),
			API:    &status,
		}
	}
	return status, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.OBSError{
			Kind:   types.ErrorKindTransport,
			Method: resp.Request.Method,
			URL:    resp.Request.URL.String(),
			Cause:  err,
		}
	}
	return data, nil
}

func readXML(resp *http.Response, v any) error {
	data, err := readBody(resp)
	if err != nil {
		return err
	}
	if err := decodeXML(data, v); err != nil {
		return annotate(err, resp)
	}
	return nil
}

// annotate fills in the request of an OBSError produced while handling resp.
func annotate(err error, resp *http.Response) error {
	if obsErr, ok := err.(*types.OBSError); ok && obsErr.URL == "" && resp.Request != nil {
		obsErr.Method = resp.Request.Method
		obsErr.URL = resp.Request.URL.String()
	}
	return err
}
