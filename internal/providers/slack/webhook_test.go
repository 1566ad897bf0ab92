package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	t.Cleanup(srv.Close)

	provider := NewWebhookProvider(srv.URL)
	require.NoError(t, provider.PostMessage(context.Background(), "Custom domain verified: app.example.com"))
	assert.Equal(t, "Custom domain verified: app.example.com", got["text"])
}

func TestPostMessageNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("no_service"))
	}))
	t.Cleanup(srv.Close)

	err := NewWebhookProvider(srv.URL).PostMessage(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestNoOpProvider(t *testing.T) {
	assert.NoError(t, (&NoOpProvider{}).PostMessage(context.Background(), "dropped"))
}
