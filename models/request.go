package models

// LoginRequest is the payload for POST /api/v1/login.
type LoginRequest struct {
	// URL is the page that holds (or links to) the login form. Required.
	URL string `json:"url" binding:"required"`

	// Username and Password are submitted through the login form. Either
	// Password or KeychainKey must be set.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// KeychainKey names stored credentials. When Password is also set the
	// request credentials win.
	KeychainKey string `json:"keychain_key,omitempty" binding:"omitempty,max=128"`

	// SaveToKeychain stores the request credentials under KeychainKey.
	SaveToKeychain bool `json:"save_to_keychain,omitempty"`

	// SessionID continues an existing session: its cookies are sent with
	// both requests and the session is updated with the result.
	SessionID string `json:"session_id,omitempty" binding:"omitempty,uuid"`

	// WebhookURL receives a login.completed event when set.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Validate checks the field combinations binding tags cannot express.
func (r *LoginRequest) Validate() error {
	if r.Password == "" && r.KeychainKey == "" {
		return NewLoginError(ErrCodeInvalidInput, "password or keychain_key is required", nil)
	}
	if r.SaveToKeychain && (r.KeychainKey == "" || r.Password == "") {
		return NewLoginError(ErrCodeInvalidInput, "save_to_keychain needs keychain_key and password", nil)
	}
	return nil
}

// LinksRequest is the payload for POST /api/v1/links.
type LinksRequest struct {
	URL string `json:"url" binding:"required"`
}

// PreviewRequest is the payload for POST /api/v1/sessions/:id/preview.
type PreviewRequest struct {
	// URL is the page to render with the session's cookies. Defaults to the
	// page the session logged in on.
	URL string `json:"url,omitempty"`
}

// KeychainPutRequest is the payload for PUT /api/v1/keychain/:key.
type KeychainPutRequest struct {
	URL      string `json:"url,omitempty"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}
