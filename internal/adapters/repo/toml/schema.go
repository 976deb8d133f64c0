package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version       int                  `toml:"version"`
	Installations []installationSchema `toml:"installations"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported installations schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type installationSchema struct {
	EnterpriseID string `toml:"enterprise_id,omitempty"`
	TeamID       string `toml:"team_id"`
	TeamName     string `toml:"team_name"`
	AppID        string `toml:"app_id"`
	BotUserID    string `toml:"bot_user_id"`
	AuthedUserID string `toml:"authed_user_id"`
	Scope        string `toml:"scope"`
	TokenType    string `toml:"token_type"`
	SecretRef    string `toml:"secret_ref"`
	InstalledAt  string `toml:"installed_at"`
}
