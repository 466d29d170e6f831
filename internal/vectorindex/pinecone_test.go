package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/httpclient"
)

func testUpstream() config.UpstreamConfig {
	return config.UpstreamConfig{Timeout: 5 * time.Second}
}

func TestPinecone_QueryResolvesHostOnce(t *testing.T) {
	var describes, queries atomic.Int32

	data := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries.Add(1)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "pc-key", r.Header.Get("Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["topK"])
		assert.Equal(t, true, body["includeMetadata"])
		assert.Equal(t, "ns1", body["namespace"])
		assert.Len(t, body["vector"], 2)

		w.Write([]byte(`{"matches":[
			{"id":"Heat","score":0.91,"metadata":{"genre":"Crime","stars":5}},
			{"id":"Ronin","score":0.87,"metadata":{"genre":"Action"}}
		]}`))
	}))
	defer data.Close()

	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		describes.Add(1)
		assert.Equal(t, "/indexes/rag", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"name": "rag", "host": data.URL})
	}))
	defer control.Close()

	idx := NewPinecone(httpclient.New(testUpstream()), config.PineconeConfig{
		APIKey:     "pc-key",
		Index:      "rag",
		Namespace:  "ns1",
		ControlURL: control.URL,
	})

	for i := 0; i < 2; i++ {
		matches, err := idx.Query(context.Background(), Query{Vector: []float32{0.1, 0.2}, TopK: 3, IncludeMetadata: true})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "Heat", matches[0].ID)
		assert.Equal(t, "Ronin", matches[1].ID)
		assert.Equal(t, "Crime", matches[0].Metadata["genre"])
	}

	assert.Equal(t, int32(1), describes.Load())
	assert.Equal(t, int32(2), queries.Load())
}

func TestPinecone_ConfiguredHostSkipsDescribe(t *testing.T) {
	data := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer data.Close()

	idx := NewPinecone(httpclient.New(testUpstream()), config.PineconeConfig{
		Index:      "rag",
		IndexHost:  data.URL,
		ControlURL: "http://127.0.0.1:1",
	})

	matches, err := idx.Query(context.Background(), Query{Vector: []float32{1}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPinecone_DescribeFailureIsRetriedNextQuery(t *testing.T) {
	var describes atomic.Int32
	data := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[{"id":"a","score":1}]}`))
	}))
	defer data.Close()

	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if describes.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"host": data.URL})
	}))
	defer control.Close()

	idx := NewPinecone(httpclient.New(testUpstream()), config.PineconeConfig{Index: "rag", ControlURL: control.URL})

	_, err := idx.Query(context.Background(), Query{Vector: []float32{1}, TopK: 3})
	require.Error(t, err)

	matches, err := idx.Query(context.Background(), Query{Vector: []float32{1}, TopK: 3})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestPinecone_QueryError(t *testing.T) {
	data := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer data.Close()

	idx := NewPinecone(httpclient.New(testUpstream()), config.PineconeConfig{Index: "rag", IndexHost: data.URL})
	_, err := idx.Query(context.Background(), Query{Vector: []float32{1}, TopK: 3})

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "https://rag-abc.svc.pinecone.io", normalizeHost("rag-abc.svc.pinecone.io"))
	assert.Equal(t, "http://localhost:5080", normalizeHost("http://localhost:5080/"))
	assert.Equal(t, "", normalizeHost("  "))
}
