package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/httpclient"
)

const pineconeAPIVersion = "2024-07"

// Pinecone queries one namespace of a Pinecone index over its REST data plane.
type Pinecone struct {
	client     *retryablehttp.Client
	apiKey     string
	index      string
	namespace  string
	controlURL string

	mu   sync.Mutex
	host string
}

// NewPinecone returns a Pinecone index client. When cfg.IndexHost is empty
// the data-plane host is looked up on the first query and cached.
func NewPinecone(client *retryablehttp.Client, cfg config.PineconeConfig) *Pinecone {
	return &Pinecone{
		client:     client,
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		namespace:  cfg.Namespace,
		controlURL: strings.TrimRight(cfg.ControlURL, "/"),
		host:       normalizeHost(cfg.IndexHost),
	}
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Namespace       string    `json:"namespace,omitempty"`
}

type pineconeQueryResponse struct {
	Matches   []Match `json:"matches"`
	Namespace string  `json:"namespace"`
}

type pineconeDescribeResponse struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

func (p *Pinecone) Query(ctx context.Context, q Query) ([]Match, error) {
	host, err := p.dataHost(ctx)
	if err != nil {
		return nil, err
	}

	var resp pineconeQueryResponse
	err = httpclient.DoJSON(ctx, p.client, http.MethodPost, host+"/query", p.headers(),
		pineconeQueryRequest{
			Vector:          q.Vector,
			TopK:            q.TopK,
			IncludeMetadata: q.IncludeMetadata,
			Namespace:       p.namespace,
		}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying pinecone index %s: %w", p.index, err)
	}
	return resp.Matches, nil
}

// dataHost returns the cached data-plane URL, describing the index on first use.
// A failed lookup is not cached so the next query tries again.
func (p *Pinecone) dataHost(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.host != "" {
		return p.host, nil
	}

	var desc pineconeDescribeResponse
	endpoint := p.controlURL + "/indexes/" + url.PathEscape(p.index)
	if err := httpclient.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.headers(), nil, &desc); err != nil {
		return "", fmt.Errorf("describing pinecone index %s: %w", p.index, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("describing pinecone index %s: empty host", p.index)
	}

	p.host = normalizeHost(desc.Host)
	slog.Info("resolved pinecone index host", "index", p.index, "host", p.host)
	return p.host, nil
}

func (p *Pinecone) headers() http.Header {
	return http.Header{
		"Api-Key":                {p.apiKey},
		"X-Pinecone-Api-Version": {pineconeAPIVersion},
	}
}

// normalizeHost accepts a bare host as returned by describe-index or a full URL.
func normalizeHost(h string) string {
	h = strings.TrimRight(strings.TrimSpace(h), "/")
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "https://" + h
	}
	return h
}
