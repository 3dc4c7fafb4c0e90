package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Account holds the login for one Cookidoo account
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	Locale       string    `json:"locale,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keyring, an
// encrypted file and the environment, in that order
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Environment is read-only and always last
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if account.Username == "" {
		return errors.New("username is required")
	}
	if account.Password == "" {
		return errors.New("password is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault returns the environment account if set, otherwise the
// most recently stored one
func (m *Manager) RetrieveDefault() (*Account, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if account, err := envStore.Retrieve(""); err == nil && account != nil {
			return account, nil
		}
	}

	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		latest := accounts[0]
		for _, a := range accounts[1:] {
			if a.LastModified.After(latest.LastModified) {
				latest = a
			}
		}
		return latest, nil
	}

	return nil, ErrCredentialsNotFound
}

// Resolve fills in missing fields of a partial login. An empty username
// selects the default account; a stored locale is used only when locale is
// empty.
func (m *Manager) Resolve(username, password, locale string) (*Account, error) {
	if username != "" && password != "" {
		return &Account{Username: username, Password: password, Locale: locale}, nil
	}

	var stored *Account
	var err error
	if username != "" {
		stored, err = m.Retrieve(username)
	} else {
		stored, err = m.RetrieveDefault()
	}
	if err != nil {
		return nil, err
	}

	resolved := *stored
	if password != "" {
		resolved.Password = password
	}
	if locale != "" {
		resolved.Locale = locale
	}
	return &resolved, nil
}

// List returns all stored accounts from all stores, sorted by username
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			// Use the most recently modified version
			if existing, ok := accountMap[account.Username]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(accountMap))
	for _, account := range accountMap {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "recipescraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "recipescraper")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "recipescraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "recipescraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with the password masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Username:     account.Username,
		Password:     maskString(account.Password),
		Locale:       account.Locale,
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 2 and last 2 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
