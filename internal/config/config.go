package config

import (
	"fmt"
	"os"
	"time"

	"advisor-service/internal/llm"
	"advisor-service/internal/models"
	"advisor-service/internal/session"
	"advisor-service/internal/storage"
	"advisor-service/internal/training"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	// Per-call deadline for backend requests
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Providers []llm.ProviderConfig   `yaml:"providers"`
	Chains    []models.ChainDescriptor `yaml:"chains"`

	Storage storage.Config `yaml:"storage"`

	Training struct {
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"training"`

	Sessions struct {
		MaxOpen int           `yaml:"max_open"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"sessions"`
}

// Default returns the built-in configuration: openai and gemini with both
// two-step chains between them
func Default() *Config {
	config := &Config{
		Providers: defaultProviders(),
		Chains: []models.ChainDescriptor{
			{Name: "OpenAI → Gemini", Description: "OpenAI drafts, Gemini refines", Models: []string{"openai", "gemini"}},
			{Name: "Gemini → OpenAI", Description: "Gemini drafts, OpenAI refines", Models: []string{"gemini", "openai"}},
		},
	}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if len(config.Providers) == 0 {
		config.Providers = defaultProviders()
	}
	config.applyDefaults()

	return config, nil
}

// defaultProviders returns the built-in providers with unexpanded key references
func defaultProviders() []llm.ProviderConfig {
	return []llm.ProviderConfig{
		{ID: "openai", Type: llm.ProviderOpenAI, DisplayName: "OpenAI", APIKey: "${OPENAI_API_KEY}"},
		{ID: "gemini", Type: llm.ProviderGemini, DisplayName: "Gemini", APIKey: "${GEMINI_API_KEY}"},
	}
}

func (config *Config) applyDefaults() {
	if config.Server.Port == "" {
		config.Server.Port = "8002"
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = llm.DefaultRequestTimeout
	}

	if config.Storage.Type == "" {
		config.Storage.Type = storage.TypeFile
	}

	if config.Training.MaxEntries <= 0 {
		config.Training.MaxEntries = training.DefaultMaxEntries
	}

	if config.Sessions.MaxOpen <= 0 {
		config.Sessions.MaxOpen = session.DefaultMaxOpen
	}

	if config.Sessions.TTL <= 0 {
		config.Sessions.TTL = session.DefaultTTL
	}

	// Expand environment variables in provider API keys
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Storage.RedisURL = os.ExpandEnv(config.Storage.RedisURL)
}

// Descriptors returns the registry entries for the configured providers
func (config *Config) Descriptors() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(config.Providers))
	for _, p := range config.Providers {
		out = append(out, p.Descriptor())
	}
	return out
}
