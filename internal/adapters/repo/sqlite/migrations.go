package sqlite

type migration struct {
	version int
	sql     string
}

// migrations must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS install_states (
	token      TEXT PRIMARY KEY,
	issued_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	consumed   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS installations (
	workspace_key  TEXT PRIMARY KEY,
	enterprise_id  TEXT NOT NULL DEFAULT '',
	team_id        TEXT NOT NULL DEFAULT '',
	team_name      TEXT NOT NULL DEFAULT '',
	app_id         TEXT NOT NULL DEFAULT '',
	bot_user_id    TEXT NOT NULL DEFAULT '',
	authed_user_id TEXT NOT NULL DEFAULT '',
	scope          TEXT NOT NULL DEFAULT '',
	token_type     TEXT NOT NULL DEFAULT '',
	secret_ref     TEXT NOT NULL DEFAULT '',
	installed_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_install_states_expires_at ON install_states(expires_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
