package openai

import (
	"errors"
	"os"
)

// holds configuration for any OpenAI-compatible chat completion endpoint
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("OPENAI_API_BASE"),
		Model:   model,
	}, nil
}
