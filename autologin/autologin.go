// Package autologin finds the login form on an arbitrary web page, submits
// credentials through it and returns the resulting session cookies. When a
// page has no login form it reports links that look like they lead to one.
package autologin

import (
	"context"
	"log/slog"
	"time"
)

// LoginRequest is the input of one login attempt.
type LoginRequest struct {
	URL         string
	Credentials Credentials
	Cookies     *CookieStore // optional; never modified
}

// Result is the outcome of a login attempt. Holding session cookies is a
// hint that the login worked, not proof; callers verify by requesting a
// protected page with Cookies.
type Result struct {
	URL            string          `json:"url"` // page the form was found on
	PageStatus     int             `json:"page_status,omitempty"`
	PageTitle      string          `json:"page_title,omitempty"`
	FormFound      bool            `json:"form_found"`
	UsernameMapped bool            `json:"username_mapped"`
	Form           *Form           `json:"form,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Submit         *SubmitResult   `json:"submit,omitempty"`
	Links          []LoginLink     `json:"links,omitempty"`
	Cookies        *CookieStore    `json:"-"`
	Duration       time.Duration   `json:"-"`
}

// AutoLogin runs the fetch, locate, select, classify and submit pipeline.
type AutoLogin struct {
	client *Client
}

// New creates an AutoLogin. A nil client means NewClient().
func New(client *Client) *AutoLogin {
	if client == nil {
		client = NewClient()
	}
	return &AutoLogin{client: client}
}

// Client returns the underlying network client.
func (a *AutoLogin) Client() *Client { return a.client }

// Login fetches req.URL and submits the credentials through its login
// form. A page without a login form is not an error: the Result has
// FormFound=false and the candidate login links.
func (a *AutoLogin) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	start := time.Now()
	page, jar, err := a.client.Fetch(ctx, req.URL, req.Cookies)
	if err != nil {
		slog.Warn("login page fetch failed", "url", RedactURL(req.URL), "error", err)
		return nil, err
	}

	res, err := a.AuthCookiesFromHTML(ctx, page.HTML, page.URL, req.Credentials, jar)
	if err != nil {
		return nil, err
	}
	res.PageStatus = page.StatusCode
	res.Duration = time.Since(start)
	return res, nil
}

// AuthCookiesFromHTML runs the pipeline on HTML the caller already has.
// pageURL is where the HTML came from; relative actions and links resolve
// against it. jar is not modified.
func (a *AutoLogin) AuthCookiesFromHTML(ctx context.Context, rawHTML, pageURL string, creds Credentials, jar *CookieStore) (*Result, error) {
	base, err := ParseTargetURL(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	forms := LocateForms(doc)
	form, ok := SelectLoginForm(forms)
	if !ok {
		links := ExtractLoginLinks(doc, base)
		slog.Info("no login form found",
			"url", RedactURL(pageURL),
			"forms", len(forms),
			"links", len(links),
		)
		return &Result{
			URL:       pageURL,
			PageTitle: DocumentTitle(doc),
			Links:     links,
			Cookies:   jar.Clone(),
		}, nil
	}

	cls := ClassifyFields(form)
	if !cls.UsernameMapped() {
		slog.Warn("no username field mapped, submitting password only",
			"url", RedactURL(pageURL),
			"form_index", form.Index,
		)
	}

	slog.Debug("submitting login form",
		"url", RedactURL(pageURL),
		"form_index", form.Index,
		"method", form.Method,
		"credentials", creds,
	)
	sub, updated, err := a.client.Submit(ctx, Submission{
		Form:           form,
		Classification: cls,
		Credentials:    creds,
		BaseURL:        base.String(),
	}, jar)
	if err != nil {
		slog.Warn("login form submit failed", "url", RedactURL(pageURL), "error", err)
		return nil, err
	}

	slog.Info("login form submitted",
		"url", RedactURL(pageURL),
		"status", sub.StatusCode,
		"cookies", updated.Len(),
	)
	return &Result{
		URL:            pageURL,
		PageTitle:      DocumentTitle(doc),
		FormFound:      true,
		UsernameMapped: cls.UsernameMapped(),
		Form:           &form,
		Classification: &cls,
		Submit:         sub,
		Cookies:        updated,
	}, nil
}

// FindLoginLinks fetches pageURL and returns its candidate login links
// without submitting anything.
func (a *AutoLogin) FindLoginLinks(ctx context.Context, pageURL string, jar *CookieStore) ([]LoginLink, *Page, error) {
	page, _, err := a.client.Fetch(ctx, pageURL, jar)
	if err != nil {
		return nil, nil, err
	}
	base, err := ParseTargetURL(page.URL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := ParseDocument(page.HTML)
	if err != nil {
		return nil, nil, err
	}
	return ExtractLoginLinks(doc, base), page, nil
}

// LoginWithSaved loads credentials by key and runs Login with them.
func (a *AutoLogin) LoginWithSaved(ctx context.Context, loader CredentialLoader, key, pageURL string, jar *CookieStore) (*Result, error) {
	creds, err := loader.LoadCredentials(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.Login(ctx, LoginRequest{URL: pageURL, Credentials: creds, Cookies: jar})
}
