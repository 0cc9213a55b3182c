package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
)

const (
	keychainService = "tokensend"

	// DefaultKeyRef is the keychain item holding the signing key.
	DefaultKeyRef = keychainService + ".signer"

	// EnvPrivateKey, when set, overrides the keychain for every Retrieve.
	// Meant for CI runners that have no keychain.
	EnvPrivateKey = "TOKENSEND_PRIVATE_KEY"
)

// KeystoreBackend stores secrets by reference.
type KeystoreBackend interface {
	Store(ref, hexKey string) error
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// DefaultKeystore returns a keystore backed by the OS keychain. fileDir is
// used by the encrypted-file backend on hosts without a keychain daemon.
func DefaultKeystore(fileDir string) *Keystore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, err = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: keyring.TerminalPrompt,
		})
		if err != nil {
			ring = nil
		}
	}

	return &Keystore{ring: ring}
}

// KeysDir returns the directory used by the file backend under configDir.
func KeysDir(configDir string) string {
	return filepath.Join(configDir, "keys")
}

// Store saves a private key under ref.
func (k *Keystore) Store(ref, hexKey string) error {
	if k.ring == nil {
		return fmt.Errorf("keystore not available")
	}
	err := k.ring.Set(keyring.Item{
		Key:         ref,
		Data:        []byte(normaliseHexKey(hexKey)),
		Label:       "tokensend signing key",
		Description: "ERC-20 transfer signing key",
	})
	if err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Retrieve fetches a private key by its reference. EnvPrivateKey wins when set.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if v := os.Getenv(EnvPrivateKey); v != "" {
		return normaliseHexKey(v), nil
	}
	if k.ring == nil {
		return "", fmt.Errorf("keystore not available")
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve %s: %w", ref, err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key.
func (k *Keystore) Delete(ref string) error {
	if k.ring == nil {
		return nil
	}
	return k.ring.Remove(ref)
}

// InMemoryKeystore stores keys in memory (for tests).
type InMemoryKeystore struct {
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(ref, hexKey string) error {
	k.data[ref] = normaliseHexKey(hexKey)
	return nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("key not found: %s", ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	delete(k.data, ref)
	return nil
}

// ImportKey validates hexKey, stores it under ref and returns the account it
// derives. Nothing is stored when the key is invalid.
func ImportKey(ks KeystoreBackend, ref, hexKey string) (*Account, error) {
	acct, err := NewAccount(hexKey)
	if err != nil {
		return nil, err
	}
	if err := ks.Store(ref, hexKey); err != nil {
		return nil, err
	}
	return acct, nil
}

// LoadAccount retrieves the key stored under ref and derives its account.
func LoadAccount(ks KeystoreBackend, ref string) (*Account, error) {
	hexKey, err := ks.Retrieve(ref)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	return NewAccount(hexKey)
}
