package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client         *genai.Client
	model          *genai.GenerativeModel
	modelName      string
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	requestTimeout time.Duration,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:         client,
		model:          model,
		modelName:      modelName,
		requestTimeout: requestTimeout,
		logger:         logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ModelName identifies the configured model
func (c *GeminiClient) ModelName() string {
	return c.modelName
}

// Generate sends a prompt to Gemini and returns the raw text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini", core.ErrUnavailable)
	}

	c.logger.Debug("LLM call succeeded", zap.String("model", c.modelName))

	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}
