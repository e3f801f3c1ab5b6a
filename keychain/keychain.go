// Package keychain stores login credentials by key so a login can be
// repeated without the caller resending the password.
package keychain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/models"
)

// ErrNotFound is returned when no item exists for a key.
var ErrNotFound = errors.New("keychain: item not found")

const maxKeyLen = 128

// Item is one stored credential pair.
type Item struct {
	Key       string    `json:"key"`
	URL       string    `json:"url,omitempty"` // login page the credentials belong to
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials returns the item's username and password.
func (i Item) Credentials() autologin.Credentials {
	return autologin.Credentials{Username: i.Username, Password: i.Password}
}

// Store persists keychain items. List never returns passwords.
type Store interface {
	Load(ctx context.Context, key string) (Item, error)
	Save(ctx context.Context, item Item) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Item, error)
}

// ValidateKey rejects empty, oversized or whitespace-padded keys.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return models.NewLoginError(models.ErrCodeInvalidInput, "keychain key is required", nil)
	case len(key) > maxKeyLen:
		return models.NewLoginError(models.ErrCodeInvalidInput, "keychain key is too long", nil)
	case strings.TrimSpace(key) != key:
		return models.NewLoginError(models.ErrCodeInvalidInput, "keychain key has surrounding whitespace", nil)
	}
	return nil
}

// Keychain adapts a Store to the credential interfaces of the login engine.
type Keychain struct {
	store Store
}

var (
	_ autologin.CredentialLoader = (*Keychain)(nil)
	_ autologin.CredentialSaver  = (*Keychain)(nil)
)

// New wraps store.
func New(store Store) *Keychain {
	return &Keychain{store: store}
}

// Store returns the underlying store.
func (k *Keychain) Store() Store { return k.store }

// LoadCredentials implements autologin.CredentialLoader.
func (k *Keychain) LoadCredentials(ctx context.Context, key string) (autologin.Credentials, error) {
	if err := ValidateKey(key); err != nil {
		return autologin.Credentials{}, err
	}
	item, err := k.store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return autologin.Credentials{}, models.NewLoginError(models.ErrCodeNotFound, "no keychain item for key", err)
	}
	if err != nil {
		return autologin.Credentials{}, models.NewLoginError(models.ErrCodeInternal, "keychain load failed", err)
	}
	return item.Credentials(), nil
}

// SaveCredentials implements autologin.CredentialSaver.
func (k *Keychain) SaveCredentials(ctx context.Context, key, pageURL string, creds autologin.Credentials) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if creds.Password == "" {
		return models.NewLoginError(models.ErrCodeInvalidInput, "refusing to store an empty password", nil)
	}
	err := k.store.Save(ctx, Item{
		Key:      key,
		URL:      pageURL,
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return models.NewLoginError(models.ErrCodeInternal, "keychain save failed", err)
	}
	return nil
}
