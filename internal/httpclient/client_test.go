package httpclient

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
)

func TestDoJSON_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("Api-Key"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
	}))
	defer srv.Close()

	client := New(config.UpstreamConfig{Timeout: 5 * time.Second})
	var out map[string]string
	err := DoJSON(context.Background(), client, http.MethodPost, srv.URL,
		http.Header{"Api-Key": {"secret"}}, map[string]string{"say": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestDoJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	client := New(config.UpstreamConfig{Timeout: 5 * time.Second})
	var out map[string]any
	err := DoJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad key")
}

func TestNew_NoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(config.UpstreamConfig{Timeout: 5 * time.Second})
	var out map[string]any
	err := DoJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_RetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(config.UpstreamConfig{Timeout: 5 * time.Second, RetryMax: 2})
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = time.Millisecond

	var out map[string]bool
	err := DoJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out)
	require.NoError(t, err)
	assert.True(t, out["ok"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestIgnoreBadRequestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	retry, err := IgnoreBadRequestRetryPolicy(ctx, &http.Response{StatusCode: http.StatusBadRequest}, nil)
	assert.NoError(t, err)
	assert.False(t, retry)

	retry, _ = IgnoreBadRequestRetryPolicy(ctx, &http.Response{StatusCode: http.StatusBadGateway}, nil)
	assert.True(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = IgnoreBadRequestRetryPolicy(cancelled, &http.Response{StatusCode: http.StatusBadGateway}, nil)
	assert.False(t, retry)
	assert.ErrorIs(t, err, context.Canceled)
}
