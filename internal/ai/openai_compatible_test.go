package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniva-docs/internal/ai/aitest"
)

func newTestClient(t *testing.T, chat func(string) string) (*OpenAICompatibleClient, *aitest.Server) {
	t.Helper()
	srv := aitest.NewServer(t, chat)
	client := NewOpenAICompatibleClient(ClientConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	return client, srv
}

func TestComplete(t *testing.T) {
	client, srv := newTestClient(t, func(prompt string) string {
		return "echo: " + prompt
	})

	answer, err := client.Complete(context.Background(), ChatConfig{Model: "test-model", Temperature: 0.3}, []ChatMessage{
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", answer)
	assert.Equal(t, "test-model", srv.LastModel())
	assert.Equal(t, 1, srv.ChatCalls())
}

func TestCompleteUpstreamError(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.FailCompletions(true)

	_, err := client.Complete(context.Background(), ChatConfig{Model: "m"}, []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm request failed")
	assert.Equal(t, 1, srv.ChatCalls(), "failures are not retried")
}

func TestCompleteRequiresMessages(t *testing.T) {
	client, srv := newTestClient(t, nil)

	_, err := client.Complete(context.Background(), ChatConfig{Model: "m"}, nil)
	assert.Error(t, err)
	assert.Zero(t, srv.ChatCalls())
}

func TestEmbed(t *testing.T) {
	client, _ := newTestClient(t, nil)

	vec, err := client.Embed(context.Background(), EmbeddingConfig{Model: "emb"}, "Paris is in France")
	require.NoError(t, err)
	assert.Equal(t, aitest.Embed("Paris is in France"), vec)

	_, err = client.Embed(context.Background(), EmbeddingConfig{Model: "emb"}, "   ")
	assert.Error(t, err)
}

func TestEmbedBatchSplitsRequestsAndKeepsOrder(t *testing.T) {
	client, srv := newTestClient(t, nil)

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk number %d", i)
	}

	vectors, err := client.EmbedBatch(context.Background(), EmbeddingConfig{Model: "emb", BatchSize: 3}, texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, aitest.Embed(text), vectors[i])
	}
	assert.Equal(t, 3, srv.EmbeddingCalls())
	assert.Equal(t, texts, srv.EmbeddedTexts())
}

func TestEmbedBatchEmpty(t *testing.T) {
	client, srv := newTestClient(t, nil)

	vectors, err := client.EmbedBatch(context.Background(), EmbeddingConfig{Model: "emb"}, nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, srv.EmbeddingCalls())
}

func TestEmbedBatchUpstreamError(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.FailEmbeddings(true)

	_, err := client.EmbedBatch(context.Background(), EmbeddingConfig{Model: "emb"}, []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding request failed")
}
