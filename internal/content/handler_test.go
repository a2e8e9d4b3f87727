package content

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(store).Register(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func TestIngestAndGetRoundTrip(t *testing.T) {
	server := newHandlerServer(t)
	payload := []byte("blob over http")

	resp, err := http.Post(server.URL+"/v1/blobs", "application/octet-stream", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ingest IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ingest))
	assert.False(t, ingest.Duplicate)
	assert.Equal(t, int64(len(payload)), ingest.Size)

	getResp, err := http.Get(server.URL + "/v1/blobs/" + ingest.Digest)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	body, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestIngestDuplicateReturnsOK(t *testing.T) {
	server := newHandlerServer(t)
	payload := []byte("twice over http")

	resp, err := http.Post(server.URL+"/v1/blobs", "application/octet-stream", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(server.URL+"/v1/blobs", "application/octet-stream", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ingest IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ingest))
	assert.True(t, ingest.Duplicate)
}

func TestIngestOversizedBodyRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	h := NewHandler(store)
	h.maxBytes = 16

	r := chi.NewRouter()
	h.Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/v1/blobs", "application/octet-stream",
		strings.NewReader(strings.Repeat("x", 64)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation_failed", body["error"])
}

func TestGetUnknownBlob(t *testing.T) {
	server := newHandlerServer(t)

	resp, err := http.Get(server.URL + "/v1/blobs/" + strings.Repeat("a", 64))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetInvalidDigest(t *testing.T) {
	server := newHandlerServer(t)

	resp, err := http.Get(server.URL + "/v1/blobs/not-hex")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
