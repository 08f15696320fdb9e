package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface for any
// OpenAI-compatible chat endpoint. The default configuration points it at a
// locally hosted model server on the loopback interface.
type OpenAIClient struct {
	client         *openai.Client
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewOpenAIClient creates a new client for an OpenAI-compatible endpoint
func NewOpenAIClient(
	baseURL string,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	requestTimeout time.Duration,
	logger *zap.Logger,
) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		modelName:      modelName,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// ModelName identifies the configured model
func (c *OpenAIClient) ModelName() string {
	return c.modelName
}

// Generate sends a prompt to the model endpoint and returns the raw text
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only in the requested labeled format.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapCallError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from endpoint", core.ErrUnavailable)
	}

	c.logger.Debug("LLM call succeeded",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID))

	return resp.Choices[0].Message.Content, nil
}

// mapCallError classifies transport failures into the core error taxonomy
func mapCallError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrUnavailable, err)
}
