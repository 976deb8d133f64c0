package domain

import "time"

// StateTTL bounds how long an issued install state token can be consumed.
const StateTTL = 600 * time.Second

type InstallationState struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

func NewInstallationState(token string, now time.Time) InstallationState {
	return InstallationState{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(StateTTL),
	}
}

func (s InstallationState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s InstallationState) Consumable(now time.Time) bool {
	return !s.Consumed && !s.Expired(now)
}

func (s InstallationState) Equal(other InstallationState) bool {
	return s.Token == other.Token &&
		s.Consumed == other.Consumed &&
		s.IssuedAt.Equal(other.IssuedAt) &&
		s.ExpiresAt.Equal(other.ExpiresAt)
}

// MarkConsumed returns the terminal copy of s.
func (s InstallationState) MarkConsumed() InstallationState {
	s.Consumed = true
	return s
}

type Installation struct {
	EnterpriseID string
	TeamID       string
	TeamName     string
	AppID        string
	BotUserID    string
	AuthedUserID string
	Scope        string
	TokenType    string
	// AccessToken is only populated in memory; stores persist SecretRef.
	AccessToken string
	SecretRef   string
	InstalledAt time.Time
}

// WorkspaceKey identifies the workspace an installation belongs to as
// "<enterprise>:<team>". Either side may be empty: ":T123" for a team
// outside any enterprise, "E1:" for an org-wide enterprise install.
func (i Installation) WorkspaceKey() string {
	return i.EnterpriseID + ":" + i.TeamID
}
