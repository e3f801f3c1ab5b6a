package autologin

import "strings"

// Classification maps a form's fields to the credential roles. Indexes
// point into Form.Fields; -1 means no field was mapped.
type Classification struct {
	PasswordIndex int    `json:"password_index"`
	UsernameIndex int    `json:"username_index"`
	PasswordField string `json:"password_field,omitempty"`
	UsernameField string `json:"username_field,omitempty"`
	UsernameRule  string `json:"username_rule,omitempty"`
}

// UsernameMapped reports whether a username field was found. A login can
// still be attempted without one.
func (c Classification) UsernameMapped() bool { return c.UsernameIndex >= 0 }

type usernameRule struct {
	name string
	find func(f Form, password int) int
}

// usernameRules are tried in order; the first hit wins.
var usernameRules = []usernameRule{
	{name: "preceding-field", find: precedingTextField},
	{name: "name-token", find: tokenNamedField},
}

var usernameTokens = []string{"user", "login", "email", "name"}

// ClassifyFields picks the password field (the first one) and the username
// field of a form. Everything else keeps its default value on submission.
func ClassifyFields(f Form) Classification {
	c := Classification{PasswordIndex: -1, UsernameIndex: -1}
	pw := f.PasswordIndex()
	if pw < 0 {
		return c
	}
	c.PasswordIndex = pw
	c.PasswordField = f.Fields[pw].Name

	for _, r := range usernameRules {
		if i := r.find(f, pw); i >= 0 {
			c.UsernameIndex = i
			c.UsernameField = f.Fields[i].Name
			c.UsernameRule = r.name
			break
		}
	}
	return c
}

func textLike(t string) bool {
	return t == "text" || t == "email" || t == "tel"
}

func usableUsername(fld Field) bool {
	return textLike(fld.Type) && fld.Name != "" && !fld.Disabled
}

// precedingTextField takes the nearest non-hidden field before the password
// field, provided it is a named text-like input.
func precedingTextField(f Form, password int) int {
	for i := password - 1; i >= 0; i-- {
		fld := f.Fields[i]
		if fld.Hidden() {
			continue
		}
		if usableUsername(fld) {
			return i
		}
		return -1
	}
	return -1
}

// tokenNamedField takes the first named text-like field whose name or id
// mentions a username token.
func tokenNamedField(f Form, password int) int {
	for i, fld := range f.Fields {
		if i == password || !usableUsername(fld) {
			continue
		}
		hay := strings.ToLower(fld.Name + " " + fld.ID)
		for _, tok := range usernameTokens {
			if strings.Contains(hay, tok) {
				return i
			}
		}
	}
	return -1
}
