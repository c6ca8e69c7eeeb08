// Package openai talks to OpenAI or any server exposing the same chat completion API.
package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"interviewprep/ai/internal/llm"
	"interviewprep/ai/internal/models"
)

const providerName = "openai"

type Client struct {
	client *goopenai.Client
	config *Config
}

func NewClient(config *Config) *Client {
	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	model := resp.Model
	if model == "" {
		model = c.config.Model
	}

	return &models.GenerationResponse{
		Content:   content,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       providerName,
			Model:          model,
		},
	}, nil
}

func (c *Client) GetProviderName() string {
	return providerName
}

func classifyError(err error) *llm.ProviderError {
	provErr := &llm.ProviderError{
		Provider: providerName,
		Code:     llm.ErrCodeConnection,
		Message:  "Chat completion request failed",
		Err:      err,
	}

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	status := 0
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		provErr.Code = llm.ErrCodeTimeout
		return provErr
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		provErr.Message = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 0:
		// no HTTP response at all: dial, TLS or DNS failure
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		provErr.Code = llm.ErrCodeAPIKey
	case status == http.StatusTooManyRequests:
		provErr.Code = llm.ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		provErr.Code = llm.ErrCodeTimeout
	case status >= http.StatusInternalServerError:
		provErr.Code = llm.ErrCodeServiceDown
	default:
		provErr.Code = llm.ErrCodeInvalidInput
	}
	return provErr
}
