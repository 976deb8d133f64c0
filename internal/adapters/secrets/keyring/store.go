// Package keyring stores secrets in the OS keyring through
// github.com/99designs/keyring.
package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

const ServiceName = "repo-digest-notifier"

type Store struct {
	ring keyring.Keyring
}

var _ ports.SecretStore = (*Store)(nil)

// Open picks the first usable system backend. The encrypted file backend is
// left to the file store so headless hosts fail over to it through the
// chain store.
func Open(serviceName string) (*Store, error) {
	if serviceName == "" {
		serviceName = ServiceName
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return &Store{ring: ring}, nil
}

func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("set keyring secret %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("keyring secret %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("get keyring secret %q: %w", key, err)
	}

	return string(item.Data), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("delete keyring secret %q: %w", key, err)
	}

	return nil
}
