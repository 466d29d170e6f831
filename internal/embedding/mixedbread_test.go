package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/httpclient"
)

func newMixedbread(url string) *Mixedbread {
	return NewMixedbread(httpclient.New(config.UpstreamConfig{Timeout: 5 * time.Second}), config.EmbeddingConfig{
		APIKey:  "mxb-key",
		BaseURL: url + "/",
		Model:   "mixedbread-ai/mxbai-embed-large-v1",
	})
}

func TestMixedbread_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer mxb-key", r.Header.Get("Authorization"))

		var body embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mixedbread-ai/mxbai-embed-large-v1", body.Model)
		assert.Equal(t, []string{"recommend an action movie"}, body.Input)
		assert.True(t, body.Normalized)
		assert.Equal(t, "float", body.EncodingFormat)
		assert.Equal(t, "end", body.TruncationStrategy)

		w.Write([]byte(`{"model":"mixedbread-ai/mxbai-embed-large-v1","data":[{"embedding":[0.25,-0.5,1],"index":0}]}`))
	}))
	defer srv.Close()

	vec, err := newMixedbread(srv.URL).Embed(context.Background(), "recommend an action movie")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
}

func TestMixedbread_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := newMixedbread(srv.URL).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEmbedding)
}

func TestMixedbread_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := newMixedbread(srv.URL).Embed(context.Background(), "x")

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.EqualError(t, err, `calling mixedbread embeddings: upstream returned 401: {"detail":"invalid api key"}`)
}
