package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, apiBase string) *SlackProvider {
	t.Helper()

	provider, err := NewSlackProvider(SlackConfig{
		ClientID:     "client-123",
		ClientSecret: "shh",
		RedirectURI:  "https://notifier.example.com/oauth/callback",
		APIBaseURL:   apiBase,
	}, nil)
	require.NoError(t, err)
	return provider
}

func TestNewStateIsURLSafeAndUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for range 100 {
		state, err := StateGenerator{}.NewToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(state)
		require.NoError(t, err)
		assert.Len(t, raw, 16)

		_, dup := seen[state]
		require.False(t, dup)
		seen[state] = struct{}{}
	}
}

func TestNewSlackProviderRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewSlackProvider(SlackConfig{ClientSecret: "s"}, nil)
	assert.ErrorContains(t, err, "client id is required")

	_, err = NewSlackProvider(SlackConfig{ClientID: "c"}, nil)
	assert.ErrorContains(t, err, "client secret is required")
}

func TestAuthorizeURLIncludesClientScopesAndState(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, "")

	u, err := provider.AuthorizeURL("state-xyz")
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "slack.com", parsed.Host)
	assert.Equal(t, "/oauth/v2/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "chat:write,channels:read", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "https://notifier.example.com/oauth/callback", q.Get("redirect_uri"))
}

func TestAuthorizeURLRejectsBadInput(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, "")
	_, err := provider.AuthorizeURL("")
	assert.ErrorContains(t, err, "state is required")

	ftp, err := NewSlackProvider(SlackConfig{ClientID: "c", ClientSecret: "s", AuthorizeURL: "ftp://slack.com/x"}, nil)
	require.NoError(t, err)
	_, err = ftp.AuthorizeURL("s")
	assert.ErrorContains(t, err, "http or https")
}

func TestExchangeMapsAccessResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth.v2.access", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "shh", r.PostForm.Get("client_secret"))
		assert.Equal(t, "code-1", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ok": true,
			"access_token": "xoxb-123",
			"token_type": "bot",
			"scope": "chat:write,channels:read",
			"bot_user_id": "U0BOT",
			"app_id": "A1",
			"team": {"id": "T123", "name": "Acme"},
			"enterprise": null,
			"authed_user": {"id": "U1"}
		}`))
	}))
	defer server.Close()

	installation, err := newTestProvider(t, server.URL).Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Installation{
		TeamID:       "T123",
		TeamName:     "Acme",
		AppID:        "A1",
		BotUserID:    "U0BOT",
		AuthedUserID: "U1",
		Scope:        "chat:write,channels:read",
		TokenType:    "bot",
		AccessToken:  "xoxb-123",
	}, installation)
	assert.Equal(t, ":T123", installation.WorkspaceKey())
}

func TestExchangeFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "ok false", status: http.StatusOK, body: `{"ok":false,"error":"invalid_code"}`, wantErr: "invalid_code"},
		{name: "http error", status: http.StatusBadGateway, body: `oops`, wantErr: "status 502"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode"},
		{name: "no token", status: http.StatusOK, body: `{"ok":true,"team":{"id":"T1"}}`, wantErr: "missing access token"},
		{name: "no workspace", status: http.StatusOK, body: `{"ok":true,"access_token":"x"}`, wantErr: "no team or enterprise"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestProvider(t, server.URL).Exchange(context.Background(), "code")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrExchangeFailed)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestExchangeRequiresCode(t *testing.T) {
	t.Parallel()

	_, err := newTestProvider(t, "http://127.0.0.1:1").Exchange(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingCode)
}
