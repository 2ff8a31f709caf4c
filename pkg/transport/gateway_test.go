package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTypingPostsDuration(t *testing.T) {
	var got typingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/typing", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := NewGatewayMessenger(srv.URL, "secret")
	require.NoError(t, m.SendTyping(context.Background(), "5511999990001", 6*time.Second))
	assert.Equal(t, "5511999990001", got.Phone)
	assert.Equal(t, int64(6000), got.DurationMs)
}

func TestSendMessageReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messages", r.URL.Path)
		var req messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello there", req.Body)
		json.NewEncoder(w).Encode(messageResponse{MessageID: "wamid.123"})
	}))
	defer srv.Close()

	m := NewGatewayMessenger(srv.URL, "secret")
	id, err := m.SendMessage(context.Background(), "5511999990001", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "wamid.123", id)
}

func TestGatewayErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewGatewayMessenger(srv.URL, "secret")
	_, err := m.SendMessage(context.Background(), "5511999990001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
