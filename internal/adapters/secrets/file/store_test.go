package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid secret key"},
		{name: "traversal", key: "../escape", wantErr: "invalid secret key"},
		{name: "inner traversal", key: "slack/../../secret", wantErr: "invalid secret key"},
		{name: "dot segment", key: "slack/./token", wantErr: "invalid secret key"},
		{name: "empty segment", key: "slack//token", wantErr: "invalid secret key"},
		{name: "trailing slash", key: "slack/token/", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStoreEscapesWorkspaceKeysInPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	keys := []string{
		application.BotTokenSecretKey(domain.Installation{EnterpriseID: "E1", TeamID: "T123"}.WorkspaceKey()),
		application.BotTokenSecretKey(domain.Installation{TeamID: "T9"}.WorkspaceKey()),
		"github/token with space",
	}
	for _, key := range keys {
		require.NoError(t, store.Put(ctx, key, "v:"+key))
	}

	for _, key := range keys {
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "v:"+key, got)
	}

	assert.FileExists(t, filepath.Join(root, "slack", "workspaces", "E1%3AT123", "bot_token"))
	assert.FileExists(t, filepath.Join(root, "slack", "workspaces", "%3AT9", "bot_token"))

	require.NoError(t, filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		require.NoError(t, err)
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		assert.NotContains(t, rel, ":")
		assert.NotContains(t, rel, " ")
		return nil
	}))
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "github/token"
	want := "ghp_top_secret"

	require.NoError(t, store.Put(context.Background(), key, "old"))
	require.NoError(t, store.Put(context.Background(), key, want))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(root, "github", "token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretMode), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(root, "github"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".secret-"), "temporary file left behind: %s", entry.Name())
	}
}

func TestStoreGetMissingReturnsSecretNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeletePrunesEmptyWorkspaceDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "slack/workspaces/:T1/bot_token", "xoxb-1"))
	require.NoError(t, store.Put(ctx, "slack/workspaces/:T2/bot_token", "xoxb-2"))

	require.NoError(t, store.Delete(ctx, "slack/workspaces/:T1/bot_token"))

	assert.NoDirExists(t, filepath.Join(root, "slack", "workspaces", "%3AT1"))
	assert.DirExists(t, filepath.Join(root, "slack", "workspaces", "%3AT2"))
	assert.DirExists(t, root)
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	key := "slack/workspaces/:T1/bot_token"

	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))
}
