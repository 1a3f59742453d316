package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements ChatService for testing
type mockChatService struct {
	response *openai.ChatCompletion
	err      error
	// Track calls for verification
	callCount  int
	lastParams openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++
	m.lastParams = params
	return m.response, m.err
}

func chatResponse(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestOpenAI_Generate(t *testing.T) {
	mock := &mockChatService{response: chatResponse(`{"learning_objective": "x"}`)}
	svc := &OpenAI{chat: mock, model: "gpt-4o", maxTokens: 8000}

	got, err := svc.Generate(context.Background(), "generate a lesson")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != `{"learning_objective": "x"}` {
		t.Errorf("Generate() = %q", got)
	}
	if mock.callCount != 1 {
		t.Errorf("callCount = %d, want 1", mock.callCount)
	}
}

func TestOpenAI_Generate_APIError(t *testing.T) {
	mock := &mockChatService{err: errors.New("rate limited")}
	svc := &OpenAI{chat: mock, model: "gpt-4o", maxTokens: 8000}

	_, err := svc.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Generate() should propagate API errors")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %v, want wrapped cause", err)
	}
}

func TestOpenAI_Generate_EmptyResponse(t *testing.T) {
	tests := []struct {
		name     string
		response *openai.ChatCompletion
	}{
		{"no choices", &openai.ChatCompletion{}},
		{"empty content", chatResponse("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockChatService{response: tt.response}
			svc := &OpenAI{chat: mock, model: "gpt-4o", maxTokens: 8000}

			if _, err := svc.Generate(context.Background(), "prompt"); err == nil {
				t.Error("Generate() should fail on empty response")
			}
		})
	}
}

func TestOpenAI_Generate_CancelledContext(t *testing.T) {
	mock := &mockChatService{response: chatResponse("x")}
	svc := &OpenAI{chat: mock, model: "gpt-4o", maxTokens: 8000}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Generate(ctx, "prompt"); err == nil {
		t.Error("Generate() with cancelled context should fail")
	}
}

func TestOpenAI_ModelName(t *testing.T) {
	svc := NewOpenAI("test-key", "gpt-4o", 8000)
	if got := svc.ModelName(); got != "gpt-4o" {
		t.Errorf("ModelName() = %q, want gpt-4o", got)
	}
}
