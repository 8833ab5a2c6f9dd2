package geocoding

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Senso-ji", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name": "Senso-ji, Asakusa, Tokyo", "lat": "35.714765", "lon": "139.796655"},
			{"display_name": "bad entry", "lat": "not-a-number", "lon": "139.0"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	results, err := client.Search(context.Background(), "Senso-ji", 5)
	require.NoError(t, err)

	// Entries with unparseable coordinates are skipped.
	require.Len(t, results, 1)
	assert.Equal(t, "Senso-ji, Asakusa, Tokyo", results[0].Name)
	assert.InDelta(t, 35.714765, results[0].Lat, 1e-9)
	assert.InDelta(t, 139.796655, results[0].Lng, 1e-9)
}

func TestClient_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := client.Search(context.Background(), "anything", 5)
	require.Error(t, err)
}
