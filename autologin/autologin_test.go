package autologin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/autologin/models"
)

const loginPage = `<!doctype html>
<html><head><title>Example login</title></head><body>
<form id="search" action="/search"><input name="q"></form>
<form id="signup" method="post" action="/register">
  <input name="email"><input type="password" name="password"><input type="password" name="confirm"><input name="display_name">
</form>
<form id="login" method="post" action="/session">
  <input type="hidden" name="authenticity_token" value="csrf-42">
  <input type="email" name="login">
  <input type="password" name="password">
  <input type="submit" name="commit" value="Sign in">
</form>
</body></html>`

// siteServer serves loginPage at /login and accepts alice/secret at /session.
func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "_csrf", Value: "c1", Path: "/"})
			_, _ = w.Write([]byte(loginPage))
		case "/session":
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("authenticity_token") != "csrf-42" || r.PostForm.Get("commit") != "Sign in" {
				http.Error(w, "bad form", http.StatusUnprocessableEntity)
				return
			}
			if c, err := r.Cookie("_csrf"); err != nil || c.Value != "c1" {
				http.Error(w, "missing csrf cookie", http.StatusForbidden)
				return
			}
			if r.PostForm.Get("login") != "alice" || r.PostForm.Get("password") != "secret" {
				http.Error(w, "wrong credentials", http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-alice", Path: "/", HttpOnly: true})
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		case "/register":
			t.Error("signup form must not be submitted")
		case "/dashboard":
			_, _ = w.Write([]byte("<p>welcome</p>"))
		case "/home":
			_, _ = w.Write([]byte(`<a href="/login">Log in</a> <a href="/help">Help</a>`))
		case "/slow":
			_, _ = w.Write([]byte(`<form method="post" action="/hang"><input name="u"><input type="password" name="p"></form>`))
		case "/hang":
			blockUntilCancelled(w, r)
		case "/empty":
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAutoLogin(srv *httptest.Server, opts ...ClientOption) *AutoLogin {
	return New(newTestClient(srv, opts...))
}

func TestLogin_SubmitsLoginFormAndCollectsCookies(t *testing.T) {
	srv := siteServer(t)
	a := newTestAutoLogin(srv)

	res, err := a.Login(context.Background(), LoginRequest{
		URL:         srv.URL + "/login",
		Credentials: Credentials{Username: "alice", Password: "secret"},
	})
	require.NoError(t, err)

	assert.True(t, res.FormFound)
	assert.True(t, res.UsernameMapped)
	require.NotNil(t, res.Form)
	assert.Equal(t, "login", res.Form.ID)
	assert.Equal(t, "login", res.Classification.UsernameField)
	assert.Equal(t, "password", res.Classification.PasswordField)
	assert.Equal(t, "Example login", res.PageTitle)
	assert.Equal(t, http.StatusOK, res.PageStatus)
	assert.Empty(t, res.Links)

	require.NotNil(t, res.Submit)
	assert.Equal(t, http.StatusOK, res.Submit.StatusCode)
	assert.Equal(t, srv.URL+"/dashboard", res.Submit.FinalURL)

	sess, ok := res.Cookies.Get("127.0.0.1", "/", "session")
	require.True(t, ok)
	assert.Equal(t, "s-alice", sess.Value)
	_, ok = res.Cookies.Get("127.0.0.1", "/", "_csrf")
	assert.True(t, ok)
}

func TestLogin_WrongCredentialsStillReturnsResult(t *testing.T) {
	srv := siteServer(t)
	res, err := newTestAutoLogin(srv).Login(context.Background(), LoginRequest{
		URL:         srv.URL + "/login",
		Credentials: Credentials{Username: "alice", Password: "nope"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.Submit.StatusCode)
	_, ok := res.Cookies.Get("127.0.0.1", "/", "session")
	assert.False(t, ok)
}

func TestLogin_NoFormReturnsLinks(t *testing.T) {
	srv := siteServer(t)
	res, err := newTestAutoLogin(srv).Login(context.Background(), LoginRequest{
		URL:         srv.URL + "/home",
		Credentials: Credentials{Username: "alice", Password: "secret"},
	})
	require.NoError(t, err)

	assert.False(t, res.FormFound)
	assert.False(t, res.UsernameMapped)
	assert.Nil(t, res.Submit)
	assert.Equal(t, []LoginLink{{Href: srv.URL + "/login", Text: "Log in"}}, res.Links)
}

func TestLogin_TimeoutLeavesStoreUntouched(t *testing.T) {
	srv := siteServer(t)
	jar := NewCookieStore()
	jar.Put(Cookie{Name: "keep", Value: "1", Domain: "127.0.0.1", HostOnly: true})
	before := jar.All()

	res, err := newTestAutoLogin(srv, WithTimeout(150*time.Millisecond)).Login(context.Background(), LoginRequest{
		URL:         srv.URL + "/slow",
		Credentials: Credentials{Username: "u", Password: "p"},
		Cookies:     jar,
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, models.IsCode(err, models.ErrCodeNetwork))
	assert.Equal(t, before, jar.All())
}

func TestLogin_EmptyBody(t *testing.T) {
	srv := siteServer(t)
	_, err := newTestAutoLogin(srv).Login(context.Background(), LoginRequest{URL: srv.URL + "/empty"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeParse))
}

func TestLogin_InvalidURL(t *testing.T) {
	_, err := New(nil).Login(context.Background(), LoginRequest{URL: "file:///etc/passwd"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeInvalidURL))
}

func TestAuthCookiesFromHTML_SelectionIsIdempotent(t *testing.T) {
	srv := siteServer(t)
	a := newTestAutoLogin(srv)
	creds := Credentials{Username: "alice", Password: "secret"}

	first, err := a.AuthCookiesFromHTML(context.Background(), loginPage, srv.URL+"/login", creds, nil)
	require.NoError(t, err)
	second, err := a.AuthCookiesFromHTML(context.Background(), loginPage, srv.URL+"/login", creds, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Form, second.Form)
	assert.Equal(t, first.Classification, second.Classification)
}

func TestFindLoginLinks(t *testing.T) {
	srv := siteServer(t)
	links, page, err := newTestAutoLogin(srv).FindLoginLinks(context.Background(), srv.URL+"/home", nil)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/home", page.URL)
	assert.Len(t, links, 1)
}

type stubLoader map[string]Credentials

func (s stubLoader) LoadCredentials(_ context.Context, key string) (Credentials, error) {
	c, ok := s[key]
	if !ok {
		return Credentials{}, models.NewLoginError(models.ErrCodeNotFound, "no credentials for key", nil)
	}
	return c, nil
}

func TestLoginWithSaved(t *testing.T) {
	srv := siteServer(t)
	a := newTestAutoLogin(srv)
	loader := stubLoader{"example": {Username: "alice", Password: "secret"}}

	res, err := a.LoginWithSaved(context.Background(), loader, "example", srv.URL+"/login", nil)
	require.NoError(t, err)
	_, ok := res.Cookies.Get("127.0.0.1", "/", "session")
	assert.True(t, ok)

	_, err = a.LoginWithSaved(context.Background(), loader, "missing", srv.URL+"/login", nil)
	assert.True(t, models.IsCode(err, models.ErrCodeNotFound))
}

func TestCredentials_NeverFormatted(t *testing.T) {
	c := Credentials{Username: "alice", Password: "hunter2"}
	for _, s := range []string{
		c.String(),
		fmt.Sprintf("%v", c),
		fmt.Sprintf("%+v", c),
		fmt.Sprintf("%#v", c),
		fmt.Sprint(errors.New("x"), c),
	} {
		assert.NotContains(t, s, "alice")
		assert.NotContains(t, s, "hunter2")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("attempt", "credentials", c)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `"password_set":true`)
}
