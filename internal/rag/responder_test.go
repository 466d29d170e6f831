package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviebox/ragchat/internal/chat"
	"github.com/moviebox/ragchat/internal/vectorindex"
)

type stubEmbedder struct {
	inputs []string
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.inputs = append(s.inputs, text)
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubIndex struct {
	queries []vectorindex.Query
	matches []vectorindex.Match
	err     error
}

func (s *stubIndex) Query(_ context.Context, q vectorindex.Query) ([]vectorindex.Match, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type stubCompleter struct {
	calls [][]chat.Message
	reply string
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, messages []chat.Message) (string, error) {
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func movieMatches() []vectorindex.Match {
	return []vectorindex.Match{
		{ID: "Heat", Score: 0.9, Metadata: map[string]any{"genre": "Crime", "stars": float64(5)}},
		{ID: "Ronin", Score: 0.8, Metadata: map[string]any{"genre": "Action", "review": "Great car chases"}},
		{ID: "Drive", Score: 0.7},
	}
}

func newTestResponder(t *testing.T) (*Responder, *stubEmbedder, *stubIndex, *stubCompleter) {
	t.Helper()
	profile, err := LookupProfile("movie")
	require.NoError(t, err)

	e := &stubEmbedder{}
	idx := &stubIndex{matches: movieMatches()}
	c := &stubCompleter{reply: "Here are 3..."}
	return NewResponder(e, idx, c, profile), e, idx, c
}

func transcript() chat.Transcript {
	return chat.Transcript{
		{Role: chat.RoleAssistant, Content: "Hi! I help users find movies they like. How can I help you today?"},
		{Role: chat.RoleUser, Content: "something with heists"},
		{Role: chat.RoleAssistant, Content: "Do you prefer old or new?"},
		{Role: chat.RoleUser, Content: "recommend an action movie"},
	}
}

func TestRespond_EmbedsExactlyLastMessage(t *testing.T) {
	r, e, _, _ := newTestResponder(t)

	_, err := r.Respond(context.Background(), transcript())
	require.NoError(t, err)
	assert.Equal(t, []string{"recommend an action movie"}, e.inputs)
}

func TestRespond_QueriesTopThreeWithMetadata(t *testing.T) {
	r, _, idx, _ := newTestResponder(t)

	_, err := r.Respond(context.Background(), transcript())
	require.NoError(t, err)
	require.Len(t, idx.queries, 1)
	assert.Equal(t, 3, idx.queries[0].TopK)
	assert.True(t, idx.queries[0].IncludeMetadata)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, idx.queries[0].Vector)
}

func TestRespond_ComposesMessagesInOrder(t *testing.T) {
	r, _, _, c := newTestResponder(t)
	tr := transcript()

	reply, err := r.Respond(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "Here are 3...", reply.Text)
	assert.Equal(t, []string{"Heat", "Ronin", "Drive"}, reply.SourceIDs)

	require.Len(t, c.calls, 1)
	msgs := c.calls[0]
	require.Len(t, msgs, len(tr)+1)

	assert.Equal(t, chat.RoleSystem, msgs[0].Role)
	assert.Equal(t, moviePrompt, msgs[0].Content)

	assert.Equal(t, chat.RoleUser, msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "recommend an action movie"+resultsHeader))

	assert.Equal(t, []chat.Message(tr.Prior()), msgs[2:])
}

func TestRespond_AugmentationHasOneBlockPerMatch(t *testing.T) {
	r, _, _, c := newTestResponder(t)

	_, err := r.Respond(context.Background(), transcript())
	require.NoError(t, err)

	user := c.calls[0][1].Content
	assert.Equal(t, 3, strings.Count(user, "Returned Results:"))

	heat := strings.Index(user, "name: Heat")
	ronin := strings.Index(user, "name: Ronin")
	drive := strings.Index(user, "name: Drive")
	assert.True(t, heat > 0 && heat < ronin && ronin < drive, "blocks out of order:\n%s", user)

	assert.Contains(t, user, "Genre: Crime\nStars: 5\nReviewer: N/A\nReview: N/A\n")
	assert.Contains(t, user, "name: Drive\nGenre: N/A\nStars: N/A\nReviewer: N/A\nReview: N/A\n")
}

func TestRespond_SingleMessageTranscript(t *testing.T) {
	r, _, _, c := newTestResponder(t)

	_, err := r.Respond(context.Background(), chat.Transcript{{Role: chat.RoleUser, Content: "anything good?"}})
	require.NoError(t, err)
	assert.Len(t, c.calls[0], 2)
}

func TestRespond_FewerMatchesThanTopK(t *testing.T) {
	r, _, idx, c := newTestResponder(t)
	idx.matches = nil

	reply, err := r.Respond(context.Background(), transcript())
	require.NoError(t, err)
	assert.Empty(t, reply.SourceIDs)
	assert.Equal(t, "recommend an action movie"+resultsHeader, c.calls[0][1].Content)
}

func TestRespond_Failures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("embedding", func(t *testing.T) {
		r, e, idx, c := newTestResponder(t)
		e.err = boom

		reply, err := r.Respond(context.Background(), transcript())
		assert.Nil(t, reply)
		assert.ErrorIs(t, err, boom)
		assert.EqualError(t, err, "embedding query: boom")
		assert.Empty(t, idx.queries)
		assert.Empty(t, c.calls)
	})

	t.Run("index", func(t *testing.T) {
		r, _, idx, c := newTestResponder(t)
		idx.err = boom

		_, err := r.Respond(context.Background(), transcript())
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, c.calls)
	})

	t.Run("completion", func(t *testing.T) {
		r, _, _, c := newTestResponder(t)
		c.err = boom

		reply, err := r.Respond(context.Background(), transcript())
		assert.Nil(t, reply)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRespond_Idempotent(t *testing.T) {
	r, _, _, c := newTestResponder(t)
	tr := transcript()
	before := append(chat.Transcript(nil), tr...)

	first, err := r.Respond(context.Background(), tr)
	require.NoError(t, err)
	second, err := r.Respond(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, c.calls[0], c.calls[1])
	assert.Equal(t, before, tr)
}
