package gemini

import (
	"time"

	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new GeminiClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	geminiCfg := f.cfg.GetGemini()

	requestTimeout, err := f.cfg.GetDuration("llm.request_timeout")
	if err != nil {
		requestTimeout = 30 * time.Second
	}

	return NewGeminiClient(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		requestTimeout,
		f.logger,
	)
}
