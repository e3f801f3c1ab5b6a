package autologin

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/autologin/models"
)

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithHTTPClient(srv.Client())}, opts...)...)
}

// blockUntilCancelled holds the response until the client gives up.
func blockUntilCancelled(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(3 * time.Second):
	}
}

func TestFetch_HeadersRedirectsAndCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.SetCookie(w, &http.Cookie{Name: "first", Value: "1", Path: "/"})
			http.Redirect(w, r, "/login", http.StatusFound)
		case "/login":
			if _, err := r.Cookie("first"); err != nil {
				http.Error(w, "cookie from redirect hop missing", http.StatusBadRequest)
				return
			}
			assert.Contains(t, r.Header.Get("User-Agent"), "Chrome/")
			assert.NotEmpty(t, r.Header.Get("Accept"))
			assert.NotEmpty(t, r.Header.Get("Accept-Language"))
			http.SetCookie(w, &http.Cookie{Name: "second", Value: "2", Path: "/"})
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><head><title> Sign in </title></head><body></body></html>"))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	jar := NewCookieStore()
	page, got, err := c.Fetch(context.Background(), srv.URL+"/start", jar)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, srv.URL+"/login", page.URL)
	doc, err := ParseDocument(page.HTML)
	require.NoError(t, err)
	assert.Equal(t, "Sign in", DocumentTitle(doc))
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, 0, jar.Len(), "caller's store must not be mutated")
}

func TestFetch_SendsExistingCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil {
			http.Error(w, "no cookie", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("hello " + c.Value))
	}))
	defer srv.Close()

	jar := NewCookieStore()
	jar.SetCookies(mustURL(t, srv.URL), []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})

	page, _, err := newTestClient(srv).Fetch(context.Background(), srv.URL, jar)
	require.NoError(t, err)
	assert.Equal(t, "hello abc", page.HTML)
}

func TestFetch_ErrorStatusKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<form method="post"><input type="password" name="p"></form>`))
	}))
	defer srv.Close()

	page, _, err := newTestClient(srv).Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, page.StatusCode)
	assert.Contains(t, page.HTML, "password")
}

func TestFetch_InvalidURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	for _, raw := range []string{"", "   ", "ftp://example.com/", "http://", "://missing-scheme", "mailto:a@b.c", "example.com/login"} {
		t.Run(raw, func(t *testing.T) {
			_, _, err := c.Fetch(context.Background(), raw, nil)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.ErrCodeInvalidURL), "got %v", err)
		})
	}
	assert.Zero(t, hits.Load())
}

func TestFetch_TimeoutLeavesStoreUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "late", Value: "1"})
		w.(http.Flusher).Flush()
		blockUntilCancelled(w, r)
	}))
	defer srv.Close()

	jar := NewCookieStore()
	jar.SetCookies(mustURL(t, srv.URL), []*http.Cookie{{Name: "sid", Value: "abc"}})
	before := jar.All()

	c := newTestClient(srv, WithTimeout(100*time.Millisecond))
	page, got, err := c.Fetch(context.Background(), srv.URL, jar)
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Nil(t, got)
	assert.True(t, models.IsCode(err, models.ErrCodeNetwork), "got %v", err)
	assert.Equal(t, before, jar.All())
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, _, err := NewClient(WithTimeout(time.Second)).Fetch(context.Background(), addr, nil)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeNetwork))
}

func TestFetch_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r", nil)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeNetwork))
	assert.True(t, errors.Is(err, errTooManyRedirects))
}

func TestNetworkError_RedactsQuery(t *testing.T) {
	cause := &url.Error{
		Op:  "Get",
		URL: "https://user:pw@example.com/login?user=bob&password=hunter2#frag",
		Err: context.DeadlineExceeded,
	}
	err := networkError("submit failed", cause)

	msg := err.Error()
	assert.NotContains(t, msg, "hunter2")
	assert.NotContains(t, msg, "bob")
	assert.NotContains(t, msg, "pw@")
	assert.Contains(t, msg, "https://example.com/login")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "http://example.com/a", RedactURL("http://example.com/a?x=1"))
	assert.True(t, strings.HasPrefix(RedactURL("%zz"), "["))
}

// newTLSSite serves a login page over TLS and closes every connection, so
// each request performs a fresh handshake.
func newTLSSite(t *testing.T) (*httptest.Server, *x509.CertPool) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: r.URL.Path, Path: "/"})
		_, _ = w.Write([]byte(`<title>Sign in</title><form method="post"><input type="password" name="p"></form>`))
	}))
	t.Cleanup(srv.Close)
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	return srv, pool
}

func TestFetch_ChromeTLSRepeatedHandshakes(t *testing.T) {
	srv, pool := newTLSSite(t)

	// Fresh clients, then one client reused; every request dials anew.
	for i := 0; i < 3; i++ {
		page, _, err := NewClient(WithRootCAs(pool)).Fetch(context.Background(), srv.URL+"/fresh", nil)
		require.NoError(t, err, "fetch %d", i)
		assert.Equal(t, http.StatusOK, page.StatusCode)
	}
	c := NewClient(WithRootCAs(pool))
	for i := 0; i < 3; i++ {
		_, jar, err := c.Fetch(context.Background(), srv.URL+"/reused", nil)
		require.NoError(t, err, "fetch %d", i)
		got, ok := jar.Get("127.0.0.1", "/", "sid")
		require.True(t, ok)
		assert.Equal(t, "/reused", got.Value)
	}
}

func TestFetch_ChromeTLSConcurrent(t *testing.T) {
	srv, pool := newTLSSite(t)
	c := NewClient(WithRootCAs(pool))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = c.Fetch(context.Background(), srv.URL, nil)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "fetch %d", i)
	}
}

func TestFetch_UntrustedCertificateIsNetworkError(t *testing.T) {
	srv, _ := newTLSSite(t)
	_, _, err := NewClient(WithRootCAs(x509.NewCertPool())).Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeNetwork), "got %v", err)
}

func TestFetch_DecodesLegacyCharsets(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{
			name:        "content-type header",
			contentType: "text/html; charset=iso-8859-1",
			body:        "<form method=post><input name=\"city\" value=\"Br\xfcssel\"><input type=password name=p></form>",
		},
		{
			name:        "meta charset",
			contentType: "text/html",
			body:        "<meta charset=\"windows-1252\"><form method=post><input name=\"city\" value=\"Br\xfcssel\"><input type=password name=p></form>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			page, _, err := newTestClient(srv).Fetch(context.Background(), srv.URL, nil)
			require.NoError(t, err)
			forms := mustParse(t, page.HTML)
			require.Len(t, forms, 1)
			assert.Equal(t, "Brüssel", forms[0].Fields[0].Value)
		})
	}
}

func TestFetch_KeepsUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="/login">Anmelden für Kunden</a>`))
	}))
	defer srv.Close()

	page, _, err := newTestClient(srv).Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "für")
}
