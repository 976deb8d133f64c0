package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

const (
	maxTokenResponseBytes = 1 << 20

	DefaultAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	DefaultAPIBaseURL   = "https://slack.com/api"
)

var DefaultScopes = []string{"chat:write", "channels:read"}

// NewState returns 16 bytes of crypto/rand entropy, base64url encoded.
func NewState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

type StateGenerator struct{}

var _ ports.TokenGenerator = StateGenerator{}

func (StateGenerator) NewToken() (string, error) {
	return NewState()
}

type SlackConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthorizeURL string
	APIBaseURL   string
}

// SlackProvider drives Slack's OAuth v2 install flow.
type SlackProvider struct {
	cfg    SlackConfig
	client *http.Client
}

var _ ports.OAuthProvider = (*SlackProvider)(nil)

func NewSlackProvider(cfg SlackConfig, client *http.Client) (*SlackProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &SlackProvider{cfg: cfg, client: client}, nil
}

func (p *SlackProvider) AuthorizeURL(state string) (string, error) {
	if state == "" {
		return "", errors.New("state is required")
	}

	parsed, err := url.Parse(p.cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("authorize url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("authorize url host is required")
	}

	q := parsed.Query()
	q.Set("client_id", p.cfg.ClientID)
	q.Set("scope", strings.Join(p.cfg.Scopes, ","))
	q.Set("state", state)
	if p.cfg.RedirectURI != "" {
		q.Set("redirect_uri", p.cfg.RedirectURI)
	}
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

type accessResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	BotUserID   string `json:"bot_user_id"`
	AppID       string `json:"app_id"`
	Team        *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Enterprise *struct {
		ID string `json:"id"`
	} `json:"enterprise"`
	AuthedUser struct {
		ID string `json:"id"`
	} `json:"authed_user"`
}

// Exchange posts the code to oauth.v2.access. Slack reports failures with
// HTTP 200 and ok=false, so both are checked.
func (p *SlackProvider) Exchange(ctx context.Context, code string) (domain.Installation, error) {
	if code == "" {
		return domain.Installation{}, domain.ErrMissingCode
	}

	endpoint := strings.TrimRight(p.cfg.APIBaseURL, "/") + "/oauth.v2.access"

	values := url.Values{}
	values.Set("client_id", p.cfg.ClientID)
	values.Set("client_secret", p.cfg.ClientSecret)
	values.Set("code", code)
	if p.cfg.RedirectURI != "" {
		values.Set("redirect_uri", p.cfg.RedirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return domain.Installation{}, fmt.Errorf("create oauth access request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Installation{}, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Installation{}, fmt.Errorf("%w: oauth.v2.access returned status %d", domain.ErrExchangeFailed, resp.StatusCode)
	}

	var body accessResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBytes)).Decode(&body); err != nil {
		return domain.Installation{}, fmt.Errorf("%w: decode oauth.v2.access response: %w", domain.ErrExchangeFailed, err)
	}
	if !body.OK {
		return domain.Installation{}, fmt.Errorf("%w: %s", domain.ErrExchangeFailed, body.Error)
	}
	if body.AccessToken == "" {
		return domain.Installation{}, fmt.Errorf("%w: response missing access token", domain.ErrExchangeFailed)
	}

	installation := domain.Installation{
		AppID:        body.AppID,
		BotUserID:    body.BotUserID,
		AuthedUserID: body.AuthedUser.ID,
		Scope:        body.Scope,
		TokenType:    body.TokenType,
		AccessToken:  body.AccessToken,
	}
	if body.Team != nil {
		installation.TeamID = body.Team.ID
		installation.TeamName = body.Team.Name
	}
	if body.Enterprise != nil {
		installation.EnterpriseID = body.Enterprise.ID
	}
	if installation.TeamID == "" && installation.EnterpriseID == "" {
		return domain.Installation{}, fmt.Errorf("%w: response names no team or enterprise", domain.ErrExchangeFailed)
	}

	return installation, nil
}
