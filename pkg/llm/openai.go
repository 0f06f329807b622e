package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyCompletion is returned when the API answers with no choices.
var ErrEmptyCompletion = errors.New("no choices in completion response")

// Client is a Generator backed by the OpenAI chat completions API or any
// compatible endpoint.
type Client struct {
	config Config
	client *openai.Client
}

// New builds the client. The API key is not validated here; when it is
// missing the SDK falls back to OPENAI_API_KEY and reports its own error on
// the first request.
func New(config Config) (*Client, error) {
	config = config.withDefaults()
	if t := *config.Temperature; t < 0 || t > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2: %v", t)
	}

	var opts []option.RequestOption
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" && config.BaseURL != "https://api.openai.com/v1" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	// NewClient returns a value, not a pointer
	client := openai.NewClient(opts...)

	return &Client{
		config: config,
		client: &client,
	}, nil
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.config.Model
}

// Generate runs one chat completion.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.config.Model),
		Messages:    messages,
		Temperature: openai.Float(*c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.config.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
