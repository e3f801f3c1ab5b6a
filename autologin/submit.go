package autologin

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/use-agent/autologin/models"
)

// Submission is everything needed to submit one login form.
type Submission struct {
	Form           Form
	Classification Classification
	Credentials    Credentials
	BaseURL        string // URL of the page the form was found on
}

// SubmitResult describes the response to a form submission. It makes no
// claim about whether the login succeeded.
type SubmitResult struct {
	Method     Method `json:"method"`
	ActionURL  string `json:"action_url"` // without the query string
	FinalURL   string `json:"final_url"`
	StatusCode int    `json:"status_code"`
}

// FieldValue is one name=value pair of an encoded form.
type FieldValue struct {
	Name  string
	Value string
}

// ResolveAction resolves a form action against the page URL. An empty
// action targets the page URL itself.
func ResolveAction(base *url.URL, action string) (*url.URL, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		u := *base
		return &u, nil
	}
	u, err := base.Parse(action)
	if err != nil {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL, "form action cannot be resolved", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewLoginError(models.ErrCodeInvalidURL, "form action is not http(s)", nil)
	}
	return u, nil
}

// BuildPayload lists the successful controls of the form in document
// order, with the classified username and password fields carrying the
// supplied credentials. Checkboxes and radios count only when checked,
// and only the first named submit button is included.
func BuildPayload(form Form, cls Classification, creds Credentials) []FieldValue {
	out := make([]FieldValue, 0, len(form.Fields))
	submitted := false
	for i, f := range form.Fields {
		if f.Name == "" || f.Disabled {
			continue
		}
		value := f.Value
		switch i {
		case cls.PasswordIndex:
			value = creds.Password
		case cls.UsernameIndex:
			value = creds.Username
		}
		switch f.Type {
		case "checkbox", "radio":
			if !f.Checked {
				continue
			}
		case "submit":
			if submitted {
				continue
			}
			submitted = true
		case "image", "reset", "button", "file":
			continue
		}
		out = append(out, FieldValue{Name: f.Name, Value: value})
	}
	return out
}

// EncodePayload form-urlencodes pairs without reordering them.
func EncodePayload(pairs []FieldValue) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Submit sends the form with the credentials filled in, following
// redirects. Cookies from jar are attached and every Set-Cookie is merged
// into a copy of jar, which is returned on success; jar itself is never
// modified.
func (c *Client) Submit(ctx context.Context, sub Submission, jar *CookieStore) (*SubmitResult, *CookieStore, error) {
	base, err := ParseTargetURL(sub.BaseURL)
	if err != nil {
		return nil, nil, err
	}
	target, err := ResolveAction(base, sub.Form.Action)
	if err != nil {
		return nil, nil, err
	}
	payload := EncodePayload(BuildPayload(sub.Form, sub.Classification, sub.Credentials))

	var req *http.Request
	if sub.Form.Method == MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Origin", base.Scheme+"://"+base.Host)
		}
	} else {
		u := *target
		u.RawQuery = payload
		u.Fragment = ""
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	if err != nil {
		// The request URL may hold the payload; keep it out of the error.
		return nil, nil, models.NewLoginError(models.ErrCodeInvalidURL, "cannot build submit request", nil)
	}
	setBrowserHeaders(req.Header)
	req.Header.Set("Referer", base.String())

	working := jar.Clone()
	resp, _, err := c.do(req, working)
	if err != nil {
		return nil, nil, networkError("submit failed", err)
	}

	return &SubmitResult{
		Method:     methodOf(sub.Form),
		ActionURL:  RedactURL(target.String()),
		FinalURL:   RedactURL(resp.Request.URL.String()),
		StatusCode: resp.StatusCode,
	}, working, nil
}

func methodOf(f Form) Method {
	if f.Method == MethodPost {
		return MethodPost
	}
	return MethodGet
}
