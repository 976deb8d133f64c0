package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookDeliverPostsJSONPayload(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, map[string]string{
			"text":       "*Reminder for the Notification*",
			"username":   "GitHub Notification Bot",
			"icon_emoji": ":github:",
		}, payload)

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	webhook, err := NewWebhook(server.URL, server.Client())
	require.NoError(t, err)

	err = webhook.Deliver(context.Background(), ports.Message{
		Text:      "*Reminder for the Notification*",
		Username:  "GitHub Notification Bot",
		IconEmoji: ":github:",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookDeliverReportsRejectionOnce(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unknown hook", status: http.StatusNotFound, body: "no_service"},
		{name: "server error", status: http.StatusInternalServerError, body: "internal_error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			webhook, err := NewWebhook(server.URL, server.Client())
			require.NoError(t, err)

			err = webhook.Deliver(context.Background(), ports.Message{Text: "hi"})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

			var deliveryErr *domain.DeliveryError
			require.True(t, errors.As(err, &deliveryErr))
			assert.Equal(t, tc.status, deliveryErr.StatusCode)
			assert.Equal(t, tc.body, deliveryErr.Body)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestWebhookDeliverCapsErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", maxErrorBodyBytes+1024)))
	}))
	defer server.Close()

	webhook, err := NewWebhook(server.URL, server.Client())
	require.NoError(t, err)

	err = webhook.Deliver(context.Background(), ports.Message{Text: "hi"})
	var deliveryErr *domain.DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Len(t, deliveryErr.Body, maxErrorBodyBytes)
}

func TestWebhookDeliverWrapsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	webhook, err := NewWebhook(server.URL, &http.Client{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	err = webhook.Deliver(context.Background(), ports.Message{Text: "hi"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "post webhook")
	assert.NotErrorIs(t, err, domain.ErrDeliveryFailed)
}

func TestNewWebhookValidatesURL(t *testing.T) {
	t.Parallel()

	_, err := NewWebhook("", nil)
	assert.ErrorContains(t, err, "webhook url is required")

	_, err = NewWebhook("ftp://hooks.slack.com/x", nil)
	assert.ErrorContains(t, err, "http or https")
}
