// Package auth stores platform account credentials. Accounts are
// auth_token/ct0 cookie pairs, optionally with a per-account egress
// proxy. Storage tries the system keychain first, then an encrypted
// file, then read-only environment variables.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Account is one set of platform credentials.
type Account struct {
	Name         string    `json:"name"`
	AuthToken    string    `json:"auth_token"`
	CSRFToken    string    `json:"csrf_token"`
	Proxy        string    `json:"proxy,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one storage backend for accounts.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(name string) (*Account, error)
	List() ([]*Account, error)
	Delete(name string) error
	Exists(name string) bool
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager layers credential stores with fallback.
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the standard store chain: keychain when available,
// encrypted file always, environment variables as read-only last
// resort.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("creating encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit stores, for
// tests.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves an account in the first store that accepts it.
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return errors.New("account name is required")
	}
	if account.AuthToken == "" {
		return errors.New("auth token is required")
	}
	if account.CSRFToken == "" {
		return errors.New("csrf token is required")
	}
	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("storing credentials: %w", lastErr)
	}
	return errors.New("no credential stores available")
}

// Retrieve finds an account by name in the first store that has it.
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// List merges accounts across stores, keeping the most recently
// modified copy when names collide.
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Name] = account
			}
		}
	}

	var result []*Account
	for _, account := range byName {
		result = append(result, account)
	}
	return result, nil
}

// Delete removes an account from every store that has it.
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}
	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("deleting credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

func getConfigDir() (string, error) {
	var configDir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "xscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "xscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "xscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "xscraper")
		}
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy safe for display, with tokens masked.
func Sanitize(account *Account) *Account {
	if account == nil {
		return nil
	}
	return &Account{
		Name:         account.Name,
		AuthToken:    maskString(account.AuthToken),
		CSRFToken:    maskString(account.CSRFToken),
		Proxy:        account.Proxy,
		LastModified: account.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
