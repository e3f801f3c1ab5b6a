package autologin

import (
	"context"
	"log/slog"
)

// Credentials are the username and password submitted through a login
// form. Formatting and logging never reveal either value.
type Credentials struct {
	Username string
	Password string
}

const redacted = "[redacted]"

func (c Credentials) String() string {
	return "Credentials{Username:" + redacted + ", Password:" + redacted + "}"
}

func (c Credentials) GoString() string { return c.String() }

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("username_set", c.Username != ""),
		slog.Bool("password_set", c.Password != ""),
	)
}

// CredentialLoader resolves stored credentials by key.
type CredentialLoader interface {
	LoadCredentials(ctx context.Context, key string) (Credentials, error)
}

// CredentialSaver persists credentials under a key, together with the
// login page they were used on.
type CredentialSaver interface {
	SaveCredentials(ctx context.Context, key, pageURL string, creds Credentials) error
}
