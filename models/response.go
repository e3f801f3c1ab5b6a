package models

import "time"

// ErrorResponse is returned by every endpoint on failure.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse wraps a detail in an ErrorResponse.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}

// LoginResponse is the response for POST /api/v1/login.
type LoginResponse struct {
	Success bool `json:"success"`

	// SessionID identifies the stored cookie store for follow-up calls.
	SessionID string `json:"session_id"`

	// URL is the page the form was looked for on, after redirects.
	URL        string `json:"url"`
	PageStatus int    `json:"page_status"`
	PageTitle  string `json:"page_title,omitempty"`

	// FormFound is false when the page had no login form; Links then lists
	// candidate login pages.
	FormFound bool `json:"form_found"`

	// UsernameMapped is false when the form was submitted without a
	// username field.
	UsernameMapped bool `json:"username_mapped"`

	Form    *FormView    `json:"form,omitempty"`
	Submit  *SubmitView  `json:"submit,omitempty"`
	Links   []Link       `json:"links,omitempty"`
	Cookies []CookieView `json:"cookies"`

	// SavedToKeychain reports that the credentials were stored.
	SavedToKeychain bool `json:"saved_to_keychain,omitempty"`

	Timing TimingInfo `json:"timing"`
}

// FormView summarises the submitted form.
type FormView struct {
	Index         int    `json:"index"`
	Method        string `json:"method"`
	Action        string `json:"action"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	FieldCount    int    `json:"field_count"`
	UsernameField string `json:"username_field,omitempty"`
	PasswordField string `json:"password_field,omitempty"`
}

// SubmitView describes the response to the form submission. URLs carry no
// query string.
type SubmitView struct {
	Method     string `json:"method"`
	ActionURL  string `json:"action_url"`
	FinalURL   string `json:"final_url"`
	StatusCode int    `json:"status_code"`
}

// CookieView is one cookie of a session.
type CookieView struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Domain   string     `json:"domain"`
	Path     string     `json:"path"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure"`
	HttpOnly bool       `json:"http_only"`
	HostOnly bool       `json:"host_only"`
}

// Link is a hyperlink extracted from a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// LinksResponse is the response for POST /api/v1/links.
type LinksResponse struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Links      []Link `json:"links"`
}

// SessionResponse is the response for GET /api/v1/sessions/:id.
type SessionResponse struct {
	Success        bool         `json:"success"`
	SessionID      string       `json:"session_id"`
	URL            string       `json:"url"`
	FormFound      bool         `json:"form_found"`
	UsernameMapped bool         `json:"username_mapped"`
	Cookies        []CookieView `json:"cookies"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// PreviewResponse is the response for POST /api/v1/sessions/:id/preview.
type PreviewResponse struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"session_id"`
	URL        string `json:"url"` // after redirects
	StatusCode int    `json:"status_code"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`

	// Extracted is false when the whole page was converted because no main
	// content could be isolated.
	Extracted bool       `json:"extracted"`
	Timing    TimingInfo `json:"timing"`
}

// KeychainItemView is a stored credential without its password.
type KeychainItemView struct {
	Key       string    `json:"key"`
	URL       string    `json:"url,omitempty"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeychainListResponse is the response for GET /api/v1/keychain.
type KeychainListResponse struct {
	Success bool               `json:"success"`
	Items   []KeychainItemView `json:"items"`
}

// TimingInfo breaks down the time spent on a request.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string `json:"status"` // "healthy"
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
	Keychain string `json:"keychain"` // backend name
}
