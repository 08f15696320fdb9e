package bedrock

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new BedrockClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	requestTimeout, err := f.cfg.GetDuration("llm.request_timeout")
	if err != nil {
		requestTimeout = 30 * time.Second
	}

	return NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		requestTimeout,
		f.logger,
	), nil
}
