package config

// LLMConfig represents provider selection and call policy
type LLMConfig struct {
	Provider      string
	RetryAttempts int
}

// OpenAIConfig represents the configuration for an OpenAI-compatible endpoint
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// MailboxConfig represents the IMAP mailbox configuration
type MailboxConfig struct {
	Address   string
	Username  string
	Password  string
	Folder    string
	MaxEmails int
}

// ServerConfig represents the web server configuration
type ServerConfig struct {
	ListenAddress string
	ViewsPath     string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		RetryAttempts: c.GetInt("llm.retry_attempts"),
	}
}

// GetOpenAI returns the OpenAI-compatible endpoint configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:     c.GetString("openai.base_url"),
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetMailbox returns the mailbox configuration
func (c *Config) GetMailbox() MailboxConfig {
	return MailboxConfig{
		Address:   c.GetString("mailbox.address"),
		Username:  c.GetString("mailbox.username"),
		Password:  c.GetString("mailbox.password"),
		Folder:    c.GetString("mailbox.folder"),
		MaxEmails: c.GetInt("mailbox.max_emails"),
	}
}

// GetServer returns the web server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		ViewsPath:     c.GetString("server.views_path"),
	}
}
