// Package embedding turns query text into vectors using the Mixedbread
// embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/httpclient"
	"github.com/moviebox/ragchat/internal/metrics"
)

// ErrNoEmbedding is returned when the service answers without any vector.
var ErrNoEmbedding = errors.New("embedding response contained no data")

// Request options sent with every call. The index was built with the same
// settings, so they are not configurable.
const (
	encodingFloat      = "float"
	truncationEnd      = "end"
	normalizeEmbedding = true
)

// Mixedbread calls POST {base}/v1/embeddings.
type Mixedbread struct {
	client   *retryablehttp.Client
	endpoint string
	apiKey   string
	model    string
}

func NewMixedbread(client *retryablehttp.Client, cfg config.EmbeddingConfig) *Mixedbread {
	return &Mixedbread{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/v1/embeddings",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
	}
}

type embedRequest struct {
	Model              string   `json:"model"`
	Input              []string `json:"input"`
	Normalized         bool     `json:"normalized"`
	EncodingFormat     string   `json:"encoding_format"`
	TruncationStrategy string   `json:"truncation_strategy"`
}

type embedResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns the vector for text.
func (m *Mixedbread) Embed(ctx context.Context, text string) (vec []float32, err error) {
	defer func(start time.Time) { metrics.ObserveUpstream(metrics.ServiceEmbedding, start, err) }(time.Now())

	var resp embedResponse
	err = httpclient.DoJSON(ctx, m.client, http.MethodPost, m.endpoint,
		http.Header{"Authorization": {"Bearer " + m.apiKey}},
		embedRequest{
			Model:              m.model,
			Input:              []string{text},
			Normalized:         normalizeEmbedding,
			EncodingFormat:     encodingFloat,
			TruncationStrategy: truncationEnd,
		}, &resp)
	if err != nil {
		return nil, fmt.Errorf("calling mixedbread embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	return resp.Data[0].Embedding, nil
}
