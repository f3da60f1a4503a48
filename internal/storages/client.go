package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrAuthRequired      = errors.New("authentication required")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnavailable       = errors.New("backend unavailable")
)

const (
	SessionCookieName = "sessionid"
	CSRFCookieName    = "csrftoken"
	CSRFHeader        = "X-CSRFToken"
	RequestIDHeader   = "X-Request-ID"
)

// APIError is a non-success response. Message holds the server-provided text, if any.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded with status %d", e.Status)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.Status, e.Message)
}

type ClientConfig struct {
	BaseURL       string
	SessionCookie string
	CSRFToken     string
	// Zero keeps the transport default.
	Timeout time.Duration
}

// Client talks to the chat backend. Cookies are only ever sent to the backend
// origin, mutating requests carry the CSRF token found in the cookie jar.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *logrus.Entry
}

func NewClient(cfg ClientConfig, logger *logrus.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	var cookies []*http.Cookie
	if cfg.SessionCookie != "" {
		cookies = append(cookies, &http.Cookie{Name: SessionCookieName, Value: cfg.SessionCookie, Path: "/"})
	}
	if cfg.CSRFToken != "" {
		cookies = append(cookies, &http.Cookie{Name: CSRFCookieName, Value: cfg.CSRFToken, Path: "/"})
	}
	jar.SetCookies(base, cookies)

	return &Client{
		base: base,
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
			// A redirect means the backend wants us to log in.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.WithField("component", "backend"),
	}, nil
}

func (c *Client) csrfToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == CSRFCookieName {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	target := c.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		req.Header.Set(CSRFHeader, c.csrfToken())
	}

	log := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       target.Path,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	log.WithField("status", resp.StatusCode).Debug("request done")
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, http.MethodPost, path, body, "application/json")
}
