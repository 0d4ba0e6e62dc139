// Package api is the HTTP client for the scanner's web API.
package api

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

	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/metrics"
	"github.com/L1nMay/portscanner-console/internal/model"
)

const (
	PathStats       = "/api/stats"
	PathResults     = "/api/results"
	PathScans       = "/api/scans"
	PathPlan        = "/api/scan/plan"
	PathScan        = "/api/scan"
	PathScanCustom  = "/api/scan/custom"
	PathScanCancel  = "/api/scan/cancel"
	PathScanStream  = "/api/scan/stream"
	maxErrorBodyLen = 4096
)

// TokenSource supplies the optional bearer credential. It is consulted on every call.
type TokenSource interface {
	Token() (token string, ok bool, err error)
}

// StatusError is a non-2xx reply. Message is the plain-text body, or the
// status text when the body is empty.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Client struct {
	base    string
	http    *http.Client
	stream  *http.Client
	tokens  TokenSource
	metrics *metrics.Collector
}

type Option func(*Client)

func WithTokens(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout bounds request/response calls. The stream is never bounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTransport replaces the transport of both the request and stream clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
		c.stream.Transport = rt
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		stream: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := c.do(ctx, http.MethodGet, PathStats, nil, &st)
	c.metrics.APICall("stats", err)
	return st, err
}

func (c *Client) Results(ctx context.Context) ([]model.Finding, error) {
	var res []model.Finding
	err := c.do(ctx, http.MethodGet, PathResults, nil, &res)
	c.metrics.APICall("results", err)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []model.Finding{}
	}
	return res, nil
}

func (c *Client) Scans(ctx context.Context) ([]model.ScanRun, error) {
	var runs []model.ScanRun
	err := c.do(ctx, http.MethodGet, PathScans, nil, &runs)
	c.metrics.APICall("scans", err)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []model.ScanRun{}
	}
	return runs, nil
}

func (c *Client) Plan(ctx context.Context) (*model.ScanPlan, error) {
	var plan *model.ScanPlan
	err := c.do(ctx, http.MethodGet, PathPlan, nil, &plan)
	if err == nil && plan == nil {
		err = errors.New("scan plan: empty response")
	}
	c.metrics.APICall("plan", err)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// StartScan launches the server's default scan.
func (c *Client) StartScan(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, PathScan, nil, nil)
	c.metrics.APICall("scan", err)
	return err
}

func (c *Client) StartCustomScan(ctx context.Context, req model.ScanRequest) error {
	err := c.do(ctx, http.MethodPost, PathScanCustom, req, nil)
	c.metrics.APICall("scan_custom", err)
	return err
}

func (c *Client) CancelScan(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, PathScanCancel, nil, nil)
	c.metrics.APICall("scan_cancel", err)
	return err
}

// OpenStream attaches to the progress stream. The stream is never authenticated.
// The caller owns the returned body; cancelling ctx also ends it.
func (c *Client) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+PathScanStream, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	c.metrics.APICall("stream", err)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil || !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, ok, err := c.tokens.Token()
	if err != nil {
		logger.Warnf("credential store unavailable, calling %s unauthenticated: %v", req.URL.Path, err)
		return
	}
	if ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if msg == "" {
		msg = resp.Status
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
