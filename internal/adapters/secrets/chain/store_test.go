package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	portmocks "github.com/bnema/repo-digest-notifier/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("from-keyring", nil).Once()

	value, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", errors.New("keyring unavailable")).Once()
	fallback.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", errors.New("keyring failed")).Once()
	fallback.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "keyring failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, "slack/workspaces/:T1/bot_token", "secret").Return(errors.New("keyring failed")).Once()
	fallback.EXPECT().Put(mock.Anything, "slack/workspaces/:T1/bot_token", "secret").Return(nil).Once()

	err := store.Put(context.Background(), "slack/workspaces/:T1/bot_token", "secret")
	require.NoError(t, err)
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, "slack/workspaces/:T1/bot_token", "secret").Return(nil).Once()

	err := store.Put(context.Background(), "slack/workspaces/:T1/bot_token", "secret")
	require.NoError(t, err)
}

func TestStoreDeleteFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Delete(mock.Anything, "slack/workspaces/:T1/bot_token").Return(errors.New("keyring failed")).Once()
	fallback.EXPECT().Delete(mock.Anything, "slack/workspaces/:T1/bot_token").Return(nil).Once()

	err := store.Delete(context.Background(), "slack/workspaces/:T1/bot_token")
	require.NoError(t, err)
}

func TestStoreDeleteDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Delete(mock.Anything, "slack/workspaces/:T1/bot_token").Return(nil).Once()

	err := store.Delete(context.Background(), "slack/workspaces/:T1/bot_token")
	require.NoError(t, err)
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreGetReportsNotFoundWhenNeitherBackendHasKey(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", fmt.Errorf("keyring: %w", domain.ErrSecretNotFound)).Once()
	fallback.EXPECT().Get(mock.Anything, "slack/workspaces/:T1/bot_token").Return("", fmt.Errorf("file: %w", domain.ErrSecretNotFound)).Once()

	_, err := store.Get(context.Background(), "slack/workspaces/:T1/bot_token")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.NotContains(t, err.Error(), "primary backend")
}

func TestNewKeyringFirstWithFileFallbackAlwaysYieldsStore(t *testing.T) {
	t.Parallel()

	store, err := NewKeyringFirstWithFileFallback("repo-digest-notifier-test", t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, store)
}
