// Package chatclient is the client side of the chat: it keeps the transcript,
// posts it to the chat endpoint and appends the streamed reply to the last
// message as it arrives.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/moviebox/ragchat/internal/chat"
)

// DefaultGreeting opens every new conversation.
const DefaultGreeting = "Hi! I help users find movies they like. How can I help you today?"

// ErrEmptyDraft is returned by Submit when there is nothing to send.
var ErrEmptyDraft = errors.New("draft is empty")

// StatusError reports a non-200 answer from the chat endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGreeting replaces the opening assistant message.
func WithGreeting(greeting string) Option {
	return func(c *Client) { c.messages[0].Content = greeting }
}

// OnUpdate registers fn to be called with a snapshot of the transcript each
// time it changes during Submit.
func OnUpdate(fn func([]chat.Message)) Option {
	return func(c *Client) { c.onUpdate = fn }
}

// Client holds one conversation. Submit calls are serialized.
type Client struct {
	endpoint string
	http     *http.Client
	onUpdate func([]chat.Message)

	submitMu sync.Mutex

	mu       sync.Mutex
	messages []chat.Message
	draft    string
}

// New returns a client posting to endpoint, e.g. http://localhost:8080/api/chat.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		messages: []chat.Message{{Role: chat.RoleAssistant, Content: DefaultGreeting}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Client) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Messages returns a copy of the transcript.
func (c *Client) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Submit sends the draft as a new user message and streams the reply into an
// assistant placeholder appended after it. On failure the placeholder is left
// as it was when the error occurred and the error is returned.
func (c *Client) Submit(ctx context.Context) error {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	text := c.draft
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return ErrEmptyDraft
	}
	c.draft = ""

	userMsg := chat.Message{Role: chat.RoleUser, Content: text}
	outgoing := append(c.snapshot(), userMsg)
	c.messages = append(c.messages, userMsg, chat.Message{Role: chat.RoleAssistant})
	updated := c.snapshot()
	c.mu.Unlock()
	c.notify(updated)

	body, err := json.Marshal(outgoing)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	for fragment, err := range Fragments(resp.Body) {
		if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		c.appendToLast(fragment)
	}
	return nil
}

// appendToLast replaces the last message with a copy carrying fragment at the end.
func (c *Client) appendToLast(fragment string) {
	c.mu.Lock()
	last := len(c.messages) - 1
	msg := c.messages[last]
	msg.Content += fragment
	c.messages = append(c.messages[:last:last], msg)
	updated := c.snapshot()
	c.mu.Unlock()

	c.notify(updated)
}

// notify runs without c.mu held so the callback may read the client.
func (c *Client) notify(messages []chat.Message) {
	if c.onUpdate != nil {
		c.onUpdate(messages)
	}
}

func (c *Client) snapshot() []chat.Message {
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// FetchProfile reads the deployment's title and greeting from GET {baseURL}/api/profile.
func FetchProfile(ctx context.Context, hc *http.Client, baseURL string) (chat.ProfileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/profile", nil)
	if err != nil {
		return chat.ProfileInfo{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return chat.ProfileInfo{}, fmt.Errorf("fetching profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chat.ProfileInfo{}, &StatusError{StatusCode: resp.StatusCode}
	}

	var body struct {
		Data chat.ProfileInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return chat.ProfileInfo{}, fmt.Errorf("decoding profile: %w", err)
	}
	return body.Data, nil
}
