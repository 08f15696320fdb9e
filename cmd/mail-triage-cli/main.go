package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (openai, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum email body size to send to the model")

	// OpenAI-compatible endpoint flags
	openaiBaseURL   = flag.String("openai-base-url", "http://127.0.0.1:11434/v1", "Base URL of the OpenAI-compatible endpoint")
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for the endpoint (optional for local servers)")
	openaiModelName = flag.String("openai-model", "llama3", "Model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Retry flags
	retryAttempts = flag.Int("retry-attempts", 1, "Extra LLM call attempts on endpoint failure")
	retryBackoff  = flag.Duration("retry-backoff", 500*time.Millisecond, "Pause between attempts")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Initialize LLM client
	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	email := &core.Email{
		ID:          "cli",
		From:        msg.Header.Get("From"),
		Subject:     msg.Header.Get("Subject"),
		Body:        string(bodyBytes),
		Attachments: []string{},
	}

	// Assemble the pipeline; no mailbox or cache is needed for a one-shot run
	textProcessor := utils.NewTextProcessor(logger)
	normalizer := core.NewNormalizer(textProcessor, cfg.GetInt("triage.max_body_size"))
	service := core.NewTriageService(
		llmClient,
		nil,
		nil,
		core.NewResultStore(),
		normalizer,
		core.NewPromptBuilder(),
		logger,
		core.TriageOptions{
			RetryAttempts: cfg.GetInt("llm.retry_attempts"),
			RetryBackoff:  *retryBackoff,
			Workers:       1,
		},
	)

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))
	fmt.Printf("\n")

	// Analyze email
	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))

	startTime := time.Now()
	result := service.Analyze(context.Background(), email)
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Tier: %s\n", result.Verdict.Tier)
	fmt.Printf("Summary: %s\n", result.Verdict.Summary)
	fmt.Printf("Deadlines: %s\n", formatList(result.Verdict.Deadlines))
	fmt.Printf("Links: %s\n", formatList(result.Verdict.Links))
	fmt.Printf("Model used: %s\n", result.Verdict.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	if result.Status == core.StatusFailed {
		os.Exit(1)
	}
}

func formatList(entries []string) string {
	if len(entries) == 0 {
		return "none"
	}
	return strings.Join(entries, ", ")
}

// createConfigFromFlags builds a configuration instance from the command line
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)
	v.Set("llm.retry_attempts", *retryAttempts)
	v.Set("llm.retry_backoff", retryBackoff.String())

	v.Set("openai.base_url", *openaiBaseURL)
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("openai.max_tokens", *maxTokens)
	v.Set("openai.temperature", *temperature)
	v.Set("openai.top_p", *topP)

	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("gemini.max_tokens", *maxTokens)
	v.Set("gemini.temperature", *temperature)
	v.Set("gemini.top_p", *topP)

	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("bedrock.max_tokens", *maxTokens)
	v.Set("bedrock.temperature", *temperature)
	v.Set("bedrock.top_p", *topP)

	v.Set("triage.max_body_size", *maxBodySize)

	return config.NewFromViper(v)
}
