// Package filez is a client for the Filez file-management HTTP API.
//
// The client is stateless: every call issues exactly one HTTP request and decodes the
// answer. Session credentials live in the cookie jar of the underlying http.Client, which
// Init fills through the identity handshake.
package filez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"golang.org/x/net/publicsuffix"
)

const (
	appIDHeader    = "X-Filez-App-Id"
	metadataHeader = "X-Filez-Metadata"
)

// Config is fixed at construction; the client never mutates it.
type Config struct {
	ServerURL     string
	IdentityURL   string
	ApplicationID string
	SkipIdentity  bool

	// HTTPClient is used as-is when set; a cookie jar is added if it has none.
	HTTPClient *http.Client
	// Logger receives one debug entry per request when set.
	Logger *logger.Logger
}

// Client wraps HTTP calls to the Filez API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates cfg and returns a client bound to it.
func NewClient(cfg Config) (*Client, error) {
	serverURL, err := normalizeBaseURL(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %v", ErrInvalidConfig, err)
	}
	cfg.ServerURL = serverURL

	if !cfg.SkipIdentity || cfg.IdentityURL != "" {
		identityURL, err := normalizeBaseURL(cfg.IdentityURL)
		if err != nil {
			return nil, fmt.Errorf("%w: identity url: %v", ErrInvalidConfig, err)
		}
		cfg.IdentityURL = identityURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	} else {
		copied := *httpClient
		httpClient = &copied
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	cfg.HTTPClient = httpClient

	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return raw, nil
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// --- low-level helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.cfg.ApplicationID != "" {
		req.Header.Set(appIDHeader, c.cfg.ApplicationID)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send performs the request and reads the whole body. It never looks at the status code.
func (c *Client) send(op string, req *http.Request) (*http.Response, []byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.debug(op, req, 0, start, err)
		return nil, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.debug(op, req, resp.StatusCode, start, err)
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}
	c.debug(op, req, resp.StatusCode, start, nil)
	return resp, data, nil
}

func (c *Client) debug(op string, req *http.Request, status int, start time.Time, err error) {
	if c.cfg.Logger == nil {
		return
	}
	details := map[string]interface{}{
		"op":         op,
		"method":     req.Method,
		"path":       req.URL.RequestURI(),
		"status":     status,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		details["error"] = err.Error()
	}
	c.cfg.Logger.Debug("filez_request", details)
}

// doJSON sends req and decodes the body into out, whatever the status.
func (c *Client) doJSON(op string, req *http.Request, out interface{}) error {
	resp, data, err := c.send(op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// doDiscard sends req and drops the answer.
func (c *Client) doDiscard(op string, req *http.Request) error {
	_, _, err := c.send(op, req)
	return err
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out interface{}) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return c.doDiscard(op, req)
	}
	return c.doJSON(op, req, out)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}

// listQuery renders i, l, f, o in that order, leaving out nil parameters.
func listQuery(p ListParams) string {
	var b strings.Builder
	b.WriteString("?i=")
	b.WriteString(strconv.Itoa(p.FromIndex))
	if p.Limit != nil {
		b.WriteString("&l=")
		b.WriteString(strconv.Itoa(*p.Limit))
	}
	if p.SortField != nil {
		b.WriteString("&f=")
		b.WriteString(url.QueryEscape(*p.SortField))
	}
	if p.SortOrder != nil {
		b.WriteString("&o=")
		b.WriteString(url.QueryEscape(string(*p.SortOrder)))
	}
	return b.String()
}
