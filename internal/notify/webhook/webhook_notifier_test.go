package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crparser/internal/domain"
	"crparser/internal/notify/webhook"
)

func TestWebhookNotifier_PostsPayload(t *testing.T) {
	var got webhook.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := webhook.NewWebhookNotifier("", time.Second)
	id := uuid.New()

	err := n.Notify(context.Background(), domain.Notification{
		URL:    srv.URL,
		JobID:  id,
		Status: domain.NotificationError,
		Error:  "queue full",
	})

	require.NoError(t, err)
	assert.Equal(t, id, got.RequestID)
	assert.Equal(t, domain.NotificationError, got.Status)
	assert.Equal(t, "queue full", got.Error)
}

func TestWebhookNotifier_FallsBackToDefaultURL(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "error")
	}))
	defer srv.Close()

	n := webhook.NewWebhookNotifier(srv.URL, time.Second)

	err := n.Notify(context.Background(), domain.Notification{JobID: uuid.New(), Status: domain.NotificationFinished})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := webhook.NewWebhookNotifier("", time.Second)

	err := n.Notify(context.Background(), domain.Notification{URL: srv.URL, JobID: uuid.New(), Status: domain.NotificationFinished})

	assert.Error(t, err)
}

func TestWebhookNotifier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	n := webhook.NewWebhookNotifier("", 20*time.Millisecond)

	err := n.Notify(context.Background(), domain.Notification{URL: srv.URL, JobID: uuid.New(), Status: domain.NotificationFinished})

	assert.Error(t, err)
}

func TestWebhookNotifier_NoTarget(t *testing.T) {
	n := webhook.NewWebhookNotifier("", time.Second)

	assert.NoError(t, n.Notify(context.Background(), domain.Notification{JobID: uuid.New()}))
}
