// Package sqlite persists install states and installations in one SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// purgeAfter is how long past expiry a state row is kept.
const purgeAfter = time.Hour

// DB owns the connection; States and Installations are views over it.
type DB struct {
	db    *sqlx.DB
	clock ports.Clock
}

type StateStore struct {
	db    *sqlx.DB
	clock ports.Clock
}

type InstallationRepository struct {
	db *sqlx.DB
}

var (
	_ ports.StateStore             = (*StateStore)(nil)
	_ ports.InstallationRepository = (*InstallationRepository)(nil)
)

// Open opens (or creates) the database at path, enables WAL and applies
// pending migrations. ":memory:" is accepted for tests.
func Open(path string, clock ports.Clock) (*DB, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &DB{db: db, clock: clock}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) States() *StateStore {
	return &StateStore{db: s.db, clock: s.clock}
}

func (s *DB) Installations() *InstallationRepository {
	return &InstallationRepository{db: s.db}
}

func (s *DB) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type stateRow struct {
	Token     string `db:"token"`
	IssuedAt  int64  `db:"issued_at"`
	ExpiresAt int64  `db:"expires_at"`
	Consumed  bool   `db:"consumed"`
}

func toStateRow(state domain.InstallationState) stateRow {
	return stateRow{
		Token:     state.Token,
		IssuedAt:  state.IssuedAt.UnixNano(),
		ExpiresAt: state.ExpiresAt.UnixNano(),
		Consumed:  state.Consumed,
	}
}

func (r stateRow) toDomain() domain.InstallationState {
	return domain.InstallationState{
		Token:     r.Token,
		IssuedAt:  time.Unix(0, r.IssuedAt).UTC(),
		ExpiresAt: time.Unix(0, r.ExpiresAt).UTC(),
		Consumed:  r.Consumed,
	}
}

func (s *StateStore) Get(ctx context.Context, token string) (domain.InstallationState, error) {
	var row stateRow
	err := s.db.GetContext(ctx, &row, "SELECT token, issued_at, expires_at, consumed FROM install_states WHERE token = ?", token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InstallationState{}, fmt.Errorf("state %q: %w", token, domain.ErrStateNotFound)
		}
		return domain.InstallationState{}, fmt.Errorf("get state: %w", err)
	}

	return row.toDomain(), nil
}

func (s *StateStore) Put(ctx context.Context, state domain.InstallationState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := s.clock.Now().Add(-purgeAfter).UnixNano()
	if _, err := tx.ExecContext(ctx, "DELETE FROM install_states WHERE expires_at < ?", cutoff); err != nil {
		return fmt.Errorf("purge expired states: %w", err)
	}

	const query = `
		INSERT OR REPLACE INTO install_states (token, issued_at, expires_at, consumed)
		VALUES (:token, :issued_at, :expires_at, :consumed)`
	if _, err := tx.NamedExecContext(ctx, query, toStateRow(state)); err != nil {
		return fmt.Errorf("put state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}

	return nil
}

// CompareAndSwap is one conditional UPDATE, so only one caller can match
// the old row.
func (s *StateStore) CompareAndSwap(ctx context.Context, token string, old, next domain.InstallationState) (bool, error) {
	oldRow := toStateRow(old)
	nextRow := toStateRow(next)

	result, err := s.db.ExecContext(ctx, `
		UPDATE install_states
		SET issued_at = ?, expires_at = ?, consumed = ?
		WHERE token = ? AND issued_at = ? AND expires_at = ? AND consumed = ?`,
		nextRow.IssuedAt, nextRow.ExpiresAt, nextRow.Consumed,
		token, oldRow.IssuedAt, oldRow.ExpiresAt, oldRow.Consumed,
	)
	if err != nil {
		return false, fmt.Errorf("compare and swap state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read affected rows: %w", err)
	}

	return affected == 1, nil
}

type installationRow struct {
	WorkspaceKey string `db:"workspace_key"`
	EnterpriseID string `db:"enterprise_id"`
	TeamID       string `db:"team_id"`
	TeamName     string `db:"team_name"`
	AppID        string `db:"app_id"`
	BotUserID    string `db:"bot_user_id"`
	AuthedUserID string `db:"authed_user_id"`
	Scope        string `db:"scope"`
	TokenType    string `db:"token_type"`
	SecretRef    string `db:"secret_ref"`
	InstalledAt  int64  `db:"installed_at"`
}

func toInstallationRow(installation domain.Installation) installationRow {
	var installedAt int64
	if !installation.InstalledAt.IsZero() {
		installedAt = installation.InstalledAt.Unix()
	}

	return installationRow{
		WorkspaceKey: installation.WorkspaceKey(),
		EnterpriseID: installation.EnterpriseID,
		TeamID:       installation.TeamID,
		TeamName:     installation.TeamName,
		AppID:        installation.AppID,
		BotUserID:    installation.BotUserID,
		AuthedUserID: installation.AuthedUserID,
		Scope:        installation.Scope,
		TokenType:    installation.TokenType,
		SecretRef:    installation.SecretRef,
		InstalledAt:  installedAt,
	}
}

func (r installationRow) toDomain() domain.Installation {
	installation := domain.Installation{
		EnterpriseID: r.EnterpriseID,
		TeamID:       r.TeamID,
		TeamName:     r.TeamName,
		AppID:        r.AppID,
		BotUserID:    r.BotUserID,
		AuthedUserID: r.AuthedUserID,
		Scope:        r.Scope,
		TokenType:    r.TokenType,
		SecretRef:    r.SecretRef,
	}
	if r.InstalledAt != 0 {
		installation.InstalledAt = time.Unix(r.InstalledAt, 0).UTC()
	}

	return installation
}

const installationColumns = `workspace_key, enterprise_id, team_id, team_name, app_id,
	bot_user_id, authed_user_id, scope, token_type, secret_ref, installed_at`

// Save overwrites any installation with the same workspace key. The access
// token is never written.
func (s *InstallationRepository) Save(ctx context.Context, installation domain.Installation) error {
	const query = `
		INSERT OR REPLACE INTO installations (` + installationColumns + `)
		VALUES (:workspace_key, :enterprise_id, :team_id, :team_name, :app_id,
			:bot_user_id, :authed_user_id, :scope, :token_type, :secret_ref, :installed_at)`

	if _, err := s.db.NamedExecContext(ctx, query, toInstallationRow(installation)); err != nil {
		return fmt.Errorf("save installation: %w", err)
	}

	return nil
}

func (s *InstallationRepository) Get(ctx context.Context, workspaceKey string) (domain.Installation, error) {
	var row installationRow
	err := s.db.GetContext(ctx, &row, "SELECT "+installationColumns+" FROM installations WHERE workspace_key = ?", workspaceKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Installation{}, fmt.Errorf("installation %q: %w", workspaceKey, domain.ErrInstallationNotFound)
		}
		return domain.Installation{}, fmt.Errorf("get installation: %w", err)
	}

	return row.toDomain(), nil
}

func (s *InstallationRepository) List(ctx context.Context) ([]domain.Installation, error) {
	var rows []installationRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+installationColumns+" FROM installations ORDER BY installed_at, workspace_key"); err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}

	installations := make([]domain.Installation, 0, len(rows))
	for _, row := range rows {
		installations = append(installations, row.toDomain())
	}

	return installations, nil
}
