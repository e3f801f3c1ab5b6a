package autologin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLoginLinks(t *testing.T) {
	doc, err := ParseDocument(`
		<nav>
		  <a href="/about">About</a>
		  <a href="/account">
		     Log
		     In
		  </a>
		  <a href="https://auth.example.org/SignIn">Continue</a>
		  <a href="users/log-in">here</a>
		  <a href="javascript:login()">Login</a>
		  <a href="mailto:login@example.com">Login help</a>
		  <a href="/account">Log in</a>
		  <a>Sign in</a>
		  <a href="/sign-in-help">Help</a>
		</nav>`)
	require.NoError(t, err)

	got := ExtractLoginLinks(doc, mustURL(t, "https://example.com/blog/post"))
	want := []LoginLink{
		{Href: "https://example.com/account", Text: "Log In"},
		{Href: "https://auth.example.org/SignIn", Text: "Continue"},
		{Href: "https://example.com/blog/users/log-in", Text: "here"},
		{Href: "https://example.com/account", Text: "Log in"},
		{Href: "https://example.com/sign-in-help", Text: "Help"},
	}
	assert.Equal(t, want, got)
}

func TestExtractLoginLinks_None(t *testing.T) {
	doc, err := ParseDocument(`<a href="/home">Home</a>`)
	require.NoError(t, err)
	assert.Empty(t, ExtractLoginLinks(doc, mustURL(t, "http://example.com/")))
	assert.Nil(t, ExtractLoginLinks(nil, nil))
}

func TestMentionsLogin(t *testing.T) {
	for _, s := range []string{"LOGIN", "Log in now", "signin", "Sign In", "log-in", "/sign-in", "/auth/login.php"} {
		assert.True(t, mentionsLogin(s), s)
	}
	for _, s := range []string{"", "logout", "sign up", "blog", "/signup"} {
		assert.False(t, mentionsLogin(s), s)
	}
}
