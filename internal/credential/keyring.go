// Package credential reads API keys and secrets from the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const DefaultServiceName = "leaflens"

// Keys under which secrets are looked up when the configuration leaves them
// empty.
const (
	KeyJWTSecret     = "jwt-secret"
	KeyWeatherAPIKey = "openweather-api-key"
	KeyChatAPIKey    = "openrouter-api-key"
	KeyResendAPIKey  = "resend-api-key"
	KeyVAPIDKey      = "vapid-key"
	KeyMinIOSecret   = "minio-secret-key"
)

type Store struct {
	ring keyring.Keyring
}

// Open returns a store backed by the first available system keyring, falling
// back to an encrypted file under fileDir.
func Open(serviceName, fileDir, filePassword string) (*Store, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(filePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) Set(key, value string) error {
	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Resolve returns value when set, otherwise the keyring entry for key. A
// missing entry resolves to "".
func (s *Store) Resolve(value, key string) (string, error) {
	if value != "" || s == nil {
		return value, nil
	}
	v, err := s.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}
