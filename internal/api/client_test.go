package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestClient_SendChat(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ChatResponse{Reply: "on it"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.SendChat(context.Background(), "run the pipeline")
	require.NoError(t, err)
	require.Equal(t, "on it", resp.Reply)
	require.Equal(t, "run the pipeline", got.Message)

	_, err = uuid.Parse(got.ID)
	require.NoError(t, err, "each message carries a valid uuid")
}

func TestClient_SendChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SendChat(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "backend busy")
}

func TestClient_SendChat_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL)
	_, err := c.SendChat(ctx, "hello")
	require.Error(t, err)
}

func TestClient_TrailingSlashBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ChatResponse{Reply: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	_, err := c.SendChat(context.Background(), "hello")
	require.NoError(t, err)
}
