package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

const anthropicMaxTokens = 4096

// Anthropic talks to the Messages API over plain HTTP.
type Anthropic struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewAnthropic(apiKey string, timeout time.Duration) *Anthropic {
	return &Anthropic{
		apiKey: apiKey,
		apiURL: anthropicURL,
		client: &http.Client{Timeout: timeout},
	}
}

// SetTestTransport points the client at a test server.
func (c *Anthropic) SetTestTransport(url string) {
	c.apiURL = url
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends the conversation to the Messages API. System messages and any
// assistant turns before the first user turn become the system prompt, since
// the API requires the conversation to open with a user turn.
func (c *Anthropic) Invoke(ctx context.Context, messages []Message, p Params) (string, error) {
	system, turns := splitSystem(messages)

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	temperature := p.Temperature
	reqBody := anthropicRequest{
		Model:       p.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    turns,
		Temperature: &temperature,
	}
	if p.TopP > 0 && p.TopP < 1 {
		topP := p.TopP
		reqBody.TopP = &topP
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: "anthropic", StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			return "", &TransportError{
				Provider:   "anthropic",
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%s: %s", errResp.Error.Type, errResp.Error.Message),
			}
		}
		return "", &TransportError{Provider: "anthropic", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(respBody))}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &TransportError{Provider: "anthropic", StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &TransportError{Provider: "anthropic", StatusCode: resp.StatusCode, Err: ErrEmptyResponse}
	}
	return sb.String(), nil
}

func splitSystem(messages []Message) (string, []Message) {
	var system []string
	var turns []Message
	for _, m := range messages {
		switch {
		case m.Role == RoleSystem:
			system = append(system, m.Content)
		case m.Role == RoleAssistant && len(turns) == 0:
			system = append(system, m.Content)
		default:
			turns = append(turns, m)
		}
	}
	return strings.Join(system, "\n\n"), turns
}
