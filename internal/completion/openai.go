// Package completion sends the composed prompt to an OpenAI-compatible chat
// completions API. OpenRouter is the default endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sashabaranov/go-openai"

	"github.com/moviebox/ragchat/internal/chat"
	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/metrics"
)

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("completion response contained no choices")

// OpenAI requests one non-streamed completion per call with a fixed model.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(httpClient *retryablehttp.Client, cfg config.CompletionConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = httpClient.StandardClient()

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete returns the content of the first choice.
func (o *OpenAI) Complete(ctx context.Context, messages []chat.Message) (text string, err error) {
	defer func(start time.Time) { metrics.ObserveUpstream(metrics.ServiceCompletion, start, err) }(time.Now())

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
