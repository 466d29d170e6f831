// Package rag answers a chat transcript by retrieving the records nearest to
// the latest message and handing them to a language model with the prompt of
// the active profile.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moviebox/ragchat/internal/chat"
	"github.com/moviebox/ragchat/internal/metrics"
	"github.com/moviebox/ragchat/internal/vectorindex"
)

// TopK is the number of records retrieved for every query.
const TopK = 3

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer asks a language model for a single reply to messages.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// Responder holds the service clients built at startup. It keeps no per-request
// state and is safe for concurrent use.
type Responder struct {
	embedder  Embedder
	index     vectorindex.Index
	completer Completer
	profile   Profile
}

func NewResponder(embedder Embedder, index vectorindex.Index, completer Completer, profile Profile) *Responder {
	return &Responder{
		embedder:  embedder,
		index:     index,
		completer: completer,
		profile:   profile,
	}
}

// Profile returns the profile the responder answers with.
func (r *Responder) Profile() Profile {
	return r.profile
}

// Respond produces the assistant's reply to a validated, non-empty transcript.
func (r *Responder) Respond(ctx context.Context, transcript chat.Transcript) (*chat.Reply, error) {
	query := transcript.Last().Content

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.queryIndex(ctx, vec)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}

	messages := r.composeMessages(transcript, FormatMatches(r.profile.Fields, matches))

	text, err := r.completer.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("completing chat: %w", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return &chat.Reply{Text: text, SourceIDs: ids}, nil
}

func (r *Responder) queryIndex(ctx context.Context, vec []float32) (matches []vectorindex.Match, err error) {
	defer func(start time.Time) { metrics.ObserveUpstream(metrics.ServiceIndex, start, err) }(time.Now())

	matches, err = r.index.Query(ctx, vectorindex.Query{
		Vector:          vec,
		TopK:            TopK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	metrics.MatchesReturned.Observe(float64(len(matches)))
	slog.Debug("retrieved matches", "count", len(matches), "profile", r.profile.Name)
	return matches, nil
}

// composeMessages orders the outbound prompt as system, augmented query, then
// the earlier turns. Deployed prompts were tuned against this order.
func (r *Responder) composeMessages(transcript chat.Transcript, augmentation string) []chat.Message {
	prior := transcript.Prior()
	messages := make([]chat.Message, 0, len(prior)+2)
	messages = append(messages,
		chat.Message{Role: chat.RoleSystem, Content: r.profile.SystemPrompt},
		chat.Message{Role: chat.RoleUser, Content: transcript.Last().Content + augmentation},
	)
	return append(messages, prior...)
}
