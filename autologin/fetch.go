package autologin

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/use-agent/autologin/models"
)

const (
	// DefaultTimeout bounds every fetch and submit, including redirects
	// and reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20
)

// Page is a fetched HTML document. HTML is always UTF-8.
type Page struct {
	URL        string `json:"url"` // final URL after redirects
	StatusCode int    `json:"status_code"`
	HTML       string `json:"-"`
}

// Client performs the two network operations of a login attempt: fetching
// the page and submitting the form. It holds only configuration and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	rootCAs    *x509.CertPool
	timeout    time.Duration
	maxBody    int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes caps the number of body bytes read per response.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithHTTPClient replaces the underlying client, e.g. with one that trusts
// an httptest TLS server. Its Jar is ignored; a redirect policy is
// installed when it has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		if cp.CheckRedirect == nil {
			cp.CheckRedirect = checkRedirect
		}
		c.httpClient = &cp
	}
}

// WithRootCAs makes the Chrome-fingerprinted transport trust pool instead
// of the system roots. It has no effect together with WithHTTPClient.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) { c.rootCAs = pool }
}

// NewClient creates a Client using the Chrome-fingerprinted transport.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport:     newBrowserTransport(c.rootCAs),
			CheckRedirect: checkRedirect,
		}
	}
	return c
}

// Timeout returns the configured per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// ParseTargetURL validates a user-supplied page URL: it must parse, use
// http or https and name a host.
func ParseTargetURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL, "url is empty", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL, "url cannot be parsed", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL,
			fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Hostname() == "" {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL, "url has no host", nil)
	}
	return u, nil
}

// Fetch retrieves rawURL with browser-like headers, sending the cookies in
// jar and collecting every Set-Cookie along the redirect chain. jar is not
// modified; the returned store is an updated copy and is only produced on
// success. A nil jar starts from an empty store.
//
// HTTP error statuses are not errors: the body is returned and the status
// recorded on the Page.
func (c *Client) Fetch(ctx context.Context, rawURL string, jar *CookieStore) (*Page, *CookieStore, error) {
	target, err := ParseTargetURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	working := jar.Clone()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, models.NewLoginError(models.ErrCodeInvalidURL, "cannot build request", err)
	}
	setBrowserHeaders(req.Header)

	resp, body, err := c.do(req, working)
	if err != nil {
		return nil, nil, networkError("fetch failed", err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       decodeBody(body, resp.Header.Get("Content-Type")),
	}, working, nil
}

// decodeBody converts body to UTF-8 using a BOM, the Content-Type charset
// or a <meta> declaration. Undeclared bytes that are not valid UTF-8 are
// read as windows-1252, like browsers do.
func decodeBody(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// do sends req through a per-call copy of the http.Client whose Jar is
// jar. The timeout covers redirects and reading the body.
func (c *Client) do(req *http.Request, jar *CookieStore) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()

	hc := *c.httpClient
	hc.Jar = jar

	resp, err := hc.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}

// networkError wraps a transport failure. URLs inside *url.Error are
// stripped of their query string and userinfo, which may carry
// credentials for GET forms.
func networkError(msg string, err error) *models.LoginError {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s %s: %w", ue.Op, RedactURL(ue.URL), ue.Err)
	}
	return models.NewLoginError(models.ErrCodeNetwork, msg, err)
}

// RedactURL drops the query, fragment and userinfo of a URL string.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
