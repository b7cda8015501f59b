package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homefront-backend/internal/config"
)

func TestSuggest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "12 oak st", r.URL.Query().Get("q"))
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write([]byte(`{"results":[
			{"formatted":"12 Oak St, Springfield, IL 62704","street":"12 Oak St","city":"Springfield","state":"IL","zip":"62704"},
			{"formatted":"12 Oak St, Dayton, OH 45402"}
		]}`))
	}))
	defer server.Close()

	c := NewClient(config.GeocodeConfig{BaseURL: server.URL, APIKey: "secret", Timeout: 2 * time.Second})
	addr, err := c.Suggest(context.Background(), "12 oak st")
	require.NoError(t, err)
	require.NotNil(t, addr)
	require.Equal(t, "12 Oak St, Springfield, IL 62704", addr.Formatted)
	require.Equal(t, "Springfield", addr.City)
	require.Equal(t, "62704", addr.Zip)
}

func TestSuggest_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	c := NewClient(config.GeocodeConfig{BaseURL: server.URL, Timeout: 2 * time.Second})
	addr, err := c.Suggest(context.Background(), "nowhere")
	require.NoError(t, err)
	require.Nil(t, addr)
}

func TestSuggest_Unconfigured(t *testing.T) {
	c := NewClient(config.GeocodeConfig{Timeout: time.Second})
	addr, err := c.Suggest(context.Background(), "anything")
	require.NoError(t, err)
	require.Nil(t, addr)
}

func TestSuggest_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(config.GeocodeConfig{BaseURL: server.URL, Timeout: 2 * time.Second})
	_, err := c.Suggest(context.Background(), "12 oak st")
	require.Error(t, err)
}
