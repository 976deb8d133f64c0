// Package file keeps secrets such as workspace bot tokens as owner-only
// files under a root directory. A key like
// "slack/workspaces/E1:T123/bot_token" maps to one path component per
// slash-separated segment, each escaped so that characters outside
// [A-Za-z0-9._~-] never reach the filesystem verbatim.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

const (
	dirMode    = 0o700
	secretMode = 0o600
)

var errEmptyKey = errors.New("secret key is empty")

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Put replaces the secret at key. The value is written to a temporary file
// and renamed into place, so readers see either the old or the new token.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create secret directory for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".secret-*")
	if err != nil {
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	tmpPath := tmp.Name()

	if err := writeSecret(tmp, value); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write secret %q: %w", key, err)
	}

	return nil
}

func writeSecret(f *os.File, value string) error {
	if err := f.Chmod(secretMode); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}

	return string(data), nil
}

// Delete removes the secret and any directories left empty by it, up to
// but not including root. Deleting a missing secret is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}

	for dir := filepath.Dir(path); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}

	return nil
}

// resolve maps key to a file under root. Empty, "." and ".." segments are
// rejected rather than normalised away.
func (s *Store) resolve(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errEmptyKey
	}

	segments := strings.Split(trimmed, "/")
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, s.root)
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid secret key %q", key)
		}
		parts = append(parts, escapeSegment(segment))
	}

	return filepath.Join(parts...), nil
}

// escapeSegment percent-encodes everything outside the unreserved set,
// including ':' and '\', which are not portable in file names.
func escapeSegment(segment string) string {
	return strings.ReplaceAll(url.QueryEscape(segment), "+", "%20")
}
