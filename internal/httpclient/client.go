// Package httpclient builds the HTTP client shared by the embedding, vector
// index and completion clients.
package httpclient

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/moviebox/ragchat/internal/config"
)

const (
	MaxIdleConns        = 100
	MaxIdleConnsPerHost = 20
	IdleConnTimeout     = 30 * time.Second
)

// New returns a retrying client configured from cfg. With RetryMax 0 each
// request is attempted exactly once.
func New(cfg config.UpstreamConfig) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:        MaxIdleConns,
			MaxIdleConnsPerHost: MaxIdleConnsPerHost,
			IdleConnTimeout:     IdleConnTimeout,
		},
	}
	client.Logger = slog.Default()
	client.RetryMax = cfg.RetryMax
	client.CheckRetry = IgnoreBadRequestRetryPolicy
	// Surface the upstream response instead of retryablehttp's "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// IgnoreBadRequestRetryPolicy retries like the default policy but never
// retries a 400, which upstream services use for requests that cannot succeed.
func IgnoreBadRequestRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
