package auth

import (
	"os"
	"time"
)

var (
	usernameEnv = []string{"THERMOMIX_USERNAME", "COOKIDOO_EMAIL", "COOKIDOO_USERNAME"}
	passwordEnv = []string{"THERMOMIX_PASSWORD", "COOKIDOO_PASSWORD"}
	localeEnv   = []string{"THERMOMIX_LOCALE", "COOKIDOO_LOCALE"}
)

// EnvironmentStore implements CredentialStore over the login environment
// variables, including the legacy COOKIDOO_* names. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func lookupEnv(names []string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. A non-empty username must
// match the one in the environment.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	envUser := lookupEnv(usernameEnv)
	password := lookupEnv(passwordEnv)
	if envUser == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != envUser {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     envUser,
		Password:     password,
		Locale:       lookupEnv(localeEnv),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
