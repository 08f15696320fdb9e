package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client         *bedrockruntime.Client
	modelID        string
	maxTokens      int
	temperature    float32
	topP           float32
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	requestTimeout time.Duration,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:         client,
		modelID:        modelID,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// ModelName identifies the configured model
func (c *BedrockClient) ModelName() string {
	return c.modelID
}

func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// Generate sends a prompt to Bedrock and returns the raw text
func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	// Request payload shape depends on the model family
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	text, err := c.extractText(resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("LLM call succeeded", zap.String("model", c.modelID))
	return text, nil
}

// extractText pulls the generated text out of the model-family specific
// response envelope
func (c *BedrockClient) extractText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("%w: empty response from Titan model", core.ErrUnavailable)
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}

	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
}
