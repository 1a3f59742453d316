package generator

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Generator = (*OpenAI)(nil)

// ChatService defines the interface for making chat completion API
// calls. This abstraction enables testing without calling the real
// OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements the generation service using OpenAI's chat API.
type OpenAI struct {
	chat      ChatService
	model     openai.ChatModel
	maxTokens int64
}

// NewOpenAI creates a new OpenAI generation service.
func NewOpenAI(apiKey, model string, maxTokens int) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		chat:      client.Chat.Completions,
		model:     openai.ChatModel(model),
		maxTokens: int64(maxTokens),
	}
}

// Generate sends the prompt as a single user message and returns the
// text of the first completion choice.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model:     openai.F(o.model),
		MaxTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("lesson generation call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("lesson generation call failed: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the generation model name.
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
