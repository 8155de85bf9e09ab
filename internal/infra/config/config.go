package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// DiscordConfig holds chat platform settings.
type DiscordConfig struct {
	Token       string `yaml:"token"`
	AdminUserID string `yaml:"admin_user_id"`
	MentionOnly bool   `yaml:"mention_only"`
	// MaxMessageLength is the platform chunk size for outgoing messages.
	MaxMessageLength int `yaml:"max_message_length"`
}

// LLMConfig holds model backend settings.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig holds settings for a single model backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "anthropic" or "openai"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Emoji       string        `yaml:"emoji"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for model backends.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// AgentConfig holds orchestration settings.
type AgentConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
	// MaxToolRounds bounds the model-call/tool-execution cycles per run.
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// MaxConversationDepth bounds reply-chain reconstruction.
	MaxConversationDepth int `yaml:"max_conversation_depth"`
}

// ToolsConfig holds tool settings.
type ToolsConfig struct {
	// Privileged lists tool names available only to the admin user.
	Privileged []string    `yaml:"privileged"`
	NasaAPIKey string      `yaml:"nasa_api_key"`
	Image      ImageConfig `yaml:"image"`
}

// ImageConfig holds image generation tool settings.
type ImageConfig struct {
	Model     string `yaml:"model"`
	Quality   string `yaml:"quality"`
	Style     string `yaml:"style"`
	MaxImages int    `yaml:"max_images"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Discord: DiscordConfig{
			MaxMessageLength: 2000,
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
		},
		Agent: AgentConfig{
			SystemPrompt:         "You are a helpful assistant. Your responses are sent through Discord.",
			MaxToolRounds:        5,
			MaxConversationDepth: 50,
		},
		Tools: ToolsConfig{
			Image: ImageConfig{
				Model:     "dall-e-3",
				Quality:   "hd",
				Style:     "vivid",
				MaxImages: 7,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error; the defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps HALBOT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HALBOT_DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("HALBOT_DISCORD_ADMIN_USER_ID"); v != "" {
		cfg.Discord.AdminUserID = v
	}
	if v := os.Getenv("HALBOT_LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("HALBOT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("HALBOT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("HALBOT_NASA_API_KEY"); v != "" {
		cfg.Tools.NasaAPIKey = v
	}
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		if p.APIKey != "" {
			continue
		}
		switch p.Type {
		case "anthropic":
			p.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			p.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Validate checks the configuration for internal consistency.
func Validate(cfg *Config) error {
	if cfg.Discord.MaxMessageLength <= 0 {
		return fmt.Errorf("discord.max_message_length must be positive")
	}
	if cfg.Agent.MaxToolRounds <= 0 {
		return fmt.Errorf("agent.max_tool_rounds must be positive")
	}
	if cfg.Agent.MaxConversationDepth <= 0 {
		return fmt.Errorf("agent.max_conversation_depth must be positive")
	}

	names := make(map[string]bool, len(cfg.LLM.Providers))
	for _, p := range cfg.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("llm provider with empty name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate llm provider %q", p.Name)
		}
		names[p.Name] = true
		switch p.Type {
		case "anthropic", "openai":
		default:
			return fmt.Errorf("llm provider %q: unsupported type %q", p.Name, p.Type)
		}
	}
	if len(cfg.LLM.Providers) > 0 && !names[cfg.LLM.DefaultProvider] {
		return fmt.Errorf("llm.default_provider %q not among configured providers", cfg.LLM.DefaultProvider)
	}
	return nil
}

// Provider returns the provider config with the given name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.LLM.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
