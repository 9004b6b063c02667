package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClientConfig points the client at an OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ChatConfig struct {
	Model       string
	Temperature float32
}

type OpenAICompatibleClient struct {
	api *openai.Client
}

func NewOpenAICompatibleClient(cfg ClientConfig) *OpenAICompatibleClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAICompatibleClient{api: openai.NewClientWithConfig(apiCfg)}
}

// Complete sends messages as one non-streaming request and returns the
// first choice verbatim.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm request has no messages")
	}
	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty llm choices")
	}
	return resp.Choices[0].Message.Content, nil
}
