package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI calls the chat completions endpoint through the official SDK.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds a client. The SDK's own retries are disabled; retrying is
// decided by Policy.
func NewOpenAI(apiKey string, opts ...option.RequestOption) *OpenAI {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &OpenAI{client: openai.NewClient(append(base, opts...)...)}
}

func (c *OpenAI) Invoke(ctx context.Context, messages []Message, p Params) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.Model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(p.Temperature),
		TopP:        openai.Float(p.TopP),
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		te := &TransportError{Provider: "openai", Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			te.StatusCode = apiErr.StatusCode
		}
		return "", te
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &TransportError{Provider: "openai", Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// New returns the invoker for a provider name ("openai" or "anthropic").
func New(provider, apiKey string, timeout time.Duration) (Invoker, error) {
	switch provider {
	case "openai":
		return NewOpenAI(apiKey, option.WithRequestTimeout(timeout)), nil
	case "anthropic":
		return NewAnthropic(apiKey, timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
