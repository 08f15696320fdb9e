package openai

import (
	"time"

	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new OpenAIClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	openaiCfg := f.cfg.GetOpenAI()

	requestTimeout, err := f.cfg.GetDuration("llm.request_timeout")
	if err != nil {
		requestTimeout = 30 * time.Second
	}

	return NewOpenAIClient(
		openaiCfg.BaseURL,
		openaiCfg.APIKey,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		requestTimeout,
		f.logger,
	), nil
}
