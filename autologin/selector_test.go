package autologin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectLoginForm(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantFound bool
		wantIndex int
	}{
		{
			name:      "single login form",
			html:      `<form><input name="u"><input type="password" name="p"></form>`,
			wantFound: true,
			wantIndex: 0,
		},
		{
			name: "login preferred over signup",
			html: `
				<form id="signup"><input name="email"><input type="password" name="p1"><input type="password" name="p2"><input name="full_name"></form>
				<form id="login"><input name="email"><input type="password" name="p"></form>`,
			wantFound: true,
			wantIndex: 1,
		},
		{
			name: "search form ignored",
			html: `
				<form><input name="q"></form>
				<form><input name="login"><input type="password" name="p"></form>`,
			wantFound: true,
			wantIndex: 1,
		},
		{
			name: "hidden fields do not count as extra",
			html: `
				<form><input name="u"><input type="password" name="p"><input name="captcha"></form>
				<form><input type="hidden" name="a"><input type="hidden" name="b"><input name="u"><input type="password" name="p"><input type="submit"></form>`,
			wantFound: true,
			wantIndex: 1,
		},
		{
			name: "tie goes to first in document order",
			html: `
				<form><input name="u"><input type="password" name="p"></form>
				<form><input name="u2"><input type="password" name="p2"></form>`,
			wantFound: true,
			wantIndex: 0,
		},
		{
			name: "no password field",
			html: `<form><input name="q"></form><form><input name="email"></form>`,
		},
		{
			name: "no forms",
			html: `<p>hi</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectLoginForm(mustParse(t, tt.html))
			require.Equal(t, tt.wantFound, ok)
			if ok {
				assert.Equal(t, tt.wantIndex, got.Index)
				assert.GreaterOrEqual(t, got.PasswordIndex(), 0)
			} else {
				assert.Equal(t, Form{}, got)
			}
		})
	}
}

func TestFormRules(t *testing.T) {
	withPw := candidate{form: Form{Index: 0, Fields: []Field{{Type: "password"}}}, extra: 2}
	withPw2 := candidate{form: Form{Index: 1, Fields: []Field{{Type: "text"}, {Type: "password"}}}, extra: 0}
	noPw := candidate{form: Form{Index: 2, Fields: []Field{{Type: "text"}}}, extra: 0}

	assert.Equal(t, []candidate{withPw, withPw2}, hasPassword([]candidate{withPw, noPw, withPw2}))
	assert.Empty(t, hasPassword([]candidate{noPw}))
	assert.Equal(t, []candidate{withPw2, noPw}, fewestExtraFields([]candidate{withPw, withPw2, noPw}))
	assert.Nil(t, fewestExtraFields(nil))
}

func TestExtraFieldCount(t *testing.T) {
	f := Form{Fields: []Field{
		{Name: "csrf", Type: "hidden"},
		{Name: "email", Type: "email"},
		{Name: "pw", Type: "password"},
		{Name: "pw2", Type: "password"},
		{Name: "remember", Type: "checkbox"},
		{Name: "go", Type: "submit"},
	}}
	assert.Equal(t, 2, extraFieldCount(f))
}
