package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultFileName = "installations.toml"
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".installations-*.toml.tmp"
)

// Repository keeps installations in a single TOML file, rewritten
// atomically on every save.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.InstallationRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("installations path is empty")
	}

	normalized, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Repository{path: normalized, mu: lockForPath(normalized)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

// Save overwrites any installation with the same workspace key.
func (r *Repository) Save(ctx context.Context, installation domain.Installation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(installation)
	key := installation.WorkspaceKey()
	updated := false
	for i := range file.Installations {
		if fromSchema(file.Installations[i]).WorkspaceKey() == key {
			file.Installations[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Installations = append(file.Installations, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Get(ctx context.Context, workspaceKey string) (domain.Installation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Installation{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Installation{}, err
	}

	for _, entry := range file.Installations {
		installation := fromSchema(entry)
		if installation.WorkspaceKey() == workspaceKey {
			return installation, nil
		}
	}

	return domain.Installation{}, fmt.Errorf("installation %q: %w", workspaceKey, domain.ErrInstallationNotFound)
}

func (r *Repository) List(ctx context.Context) ([]domain.Installation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	installations := make([]domain.Installation, 0, len(file.Installations))
	for _, entry := range file.Installations {
		installations = append(installations, fromSchema(entry))
	}

	return installations, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read installations file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode installations file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve installations path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), dirMode); err != nil {
		return fmt.Errorf("create installations directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode installations file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp installations file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp installations file: %w", err)
	}

	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp installations file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp installations file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace installations file: %w", err)
	}

	cleanup = false

	return nil
}

func toSchema(installation domain.Installation) installationSchema {
	return installationSchema{
		EnterpriseID: installation.EnterpriseID,
		TeamID:       installation.TeamID,
		TeamName:     installation.TeamName,
		AppID:        installation.AppID,
		BotUserID:    installation.BotUserID,
		AuthedUserID: installation.AuthedUserID,
		Scope:        installation.Scope,
		TokenType:    installation.TokenType,
		SecretRef:    installation.SecretRef,
		InstalledAt:  formatTime(installation.InstalledAt),
	}
}

func fromSchema(entry installationSchema) domain.Installation {
	return domain.Installation{
		EnterpriseID: entry.EnterpriseID,
		TeamID:       entry.TeamID,
		TeamName:     entry.TeamName,
		AppID:        entry.AppID,
		BotUserID:    entry.BotUserID,
		AuthedUserID: entry.AuthedUserID,
		Scope:        entry.Scope,
		TokenType:    entry.TokenType,
		SecretRef:    entry.SecretRef,
		InstalledAt:  parseTime(entry.InstalledAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
