package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnlabs/donorbot/domain"
)

func TestSendText(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/12345/messages", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "12345", "token-1", 5*time.Second)
	require.NoError(t, c.SendText(context.Background(), "5585999990000", "Olá!"))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "5585999990000", got["to"])
	assert.Equal(t, map[string]interface{}{"body": "Olá!"}, got["text"])
}

func TestSendTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "12345", "stale", 5*time.Second)
	err := c.SendText(context.Background(), "5585999990000", "Olá!")
	require.Error(t, err)

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestFetchMedia(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/media-9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"url":       srv.URL + "/download/media-9",
			"mime_type": "audio/ogg",
		})
	})
	mux.HandleFunc("/download/media-9", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte("OGGDATA"))
	})

	c := NewClient(srv.URL, "12345", "token-1", 5*time.Second)
	data, mime, err := c.FetchMedia(context.Background(), "media-9")
	require.NoError(t, err)
	assert.Equal(t, []byte("OGGDATA"), data)
	assert.Equal(t, "audio/ogg", mime)
}
