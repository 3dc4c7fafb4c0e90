package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// PassphraseEnv overrides the generated passphrase file
	PassphraseEnv = "RECIPESCRAPER_PASSPHRASE"
)

// EncryptedFileStore implements CredentialStore using an AES-GCM encrypted
// file whose key is derived with PBKDF2
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// vaultFile is the on-disk envelope
type vaultFile struct {
	Version   int       `json:"version"`
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Modified  time.Time `json:"modified"`
}

// vault is the decrypted content plus the salt it was sealed with
type vault struct {
	salt     []byte
	accounts map[string]Account
}

// NewEncryptedFileStore creates a store at path. The passphrase comes from
// RECIPESCRAPER_PASSPHRASE or a generated file in the config directory.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase, err := loadPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return NewEncryptedFileStoreWithPassphrase(path, passphrase)
}

// NewEncryptedFileStoreWithPassphrase creates a store at path sealed with passphrase
func NewEncryptedFileStoreWithPassphrase(path, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves credentials to the encrypted file
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.open()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load existing data: %w", err)
	}
	if v == nil {
		v = &vault{accounts: make(map[string]Account)}
	}

	v.accounts[account.Username] = *account
	return e.seal(v)
}

// Retrieve gets credentials from the encrypted file
func (e *EncryptedFileStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	account, ok := v.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns all stored accounts
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Account{}, nil
		}
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	accounts := make([]*Account, 0, len(v.accounts))
	for _, account := range v.accounts {
		acc := account
		accounts = append(accounts, &acc)
	}
	return accounts, nil
}

// Delete removes credentials from the encrypted file. The file is removed
// with its last account.
func (e *EncryptedFileStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to load data: %w", err)
	}

	if _, ok := v.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(v.accounts, username)

	if len(v.accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.seal(v)
}

// Exists checks if credentials exist
func (e *EncryptedFileStore) Exists(username string) bool {
	account, err := e.Retrieve(username)
	return err == nil && account != nil
}

// open reads and decrypts the file
func (e *EncryptedFileStore) open() (*vault, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, err
	}

	var file vaultFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plain, err := decrypt(sealed, e.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	accounts := make(map[string]Account)
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return &vault{salt: salt, accounts: accounts}, nil
}

// seal encrypts v and replaces the file atomically
func (e *EncryptedFileStore) seal(v *vault) error {
	if len(v.salt) == 0 {
		v.salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, v.salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(v.accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := encrypt(plain, e.key(v.salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:   1,
		Salt:      base64.StdEncoding.EncodeToString(v.salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), filepath.Base(e.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

// loadPassphrase returns the passphrase from the environment, or from a
// file in the config directory that is created on first use
func loadPassphrase() (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens data produced by encrypt
func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
