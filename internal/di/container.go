package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/web"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register mailbox client
	if err := container.Provide(func(f *factory.MailboxFactory) (core.MailboxClient, error) {
		return f.CreateMailboxClient()
	}); err != nil {
		return nil, err
	}

	// Register pipeline pieces
	if err := container.Provide(core.NewResultStore); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPromptBuilder); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, tp *utils.TextProcessor) *core.Normalizer {
		return core.NewNormalizer(tp, cfg.GetInt("triage.max_body_size"))
	}); err != nil {
		return nil, err
	}

	// Register triage options
	if err := container.Provide(func(cfg *config.Config, f *factory.CacheFactory) (core.TriageOptions, error) {
		retryBackoff, err := cfg.GetDuration("llm.retry_backoff")
		if err != nil {
			return core.TriageOptions{}, err
		}
		batchTimeout, err := cfg.GetDuration("triage.batch_timeout")
		if err != nil {
			return core.TriageOptions{}, err
		}
		cacheTTL, err := f.GetCacheTTL()
		if err != nil {
			cacheTTL = 24 * time.Hour
		}
		return core.TriageOptions{
			RetryAttempts: cfg.GetInt("llm.retry_attempts"),
			RetryBackoff:  retryBackoff,
			Workers:       cfg.GetInt("triage.workers"),
			BatchTimeout:  batchTimeout,
			CacheEnabled:  f.IsCacheEnabled(),
			CacheTTL:      cacheTTL,
		}, nil
	}); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	// Register web server
	if err := container.Provide(func(svc *core.TriageService, cfg *config.Config, logger *zap.Logger) *web.Server {
		serverCfg := cfg.GetServer()
		return web.NewServer(
			svc,
			logger,
			serverCfg.ListenAddress,
			serverCfg.ViewsPath,
			cfg.GetInt("mailbox.max_emails"),
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
