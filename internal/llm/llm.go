// Package llm is the model invocation boundary: an ordered list of chat
// messages goes out, the text of the reply comes back.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	DefaultTemperature = 0.8
	DefaultTopP        = 1.0
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty response content")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the sampling settings of one call.
type Params struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultParams returns model with temperature 0.8 and top_p 1.
func DefaultParams(model string) Params {
	return Params{Model: model, Temperature: DefaultTemperature, TopP: DefaultTopP}
}

// Invoker sends messages to a model and returns its reply text.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message, p Params) (string, error)
}

// TransportError wraps any failure of the remote call: network, auth, quota,
// timeouts or an unusable reply.
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s call failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s call failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the call could succeed: rate limits,
// server errors and per-call timeouts.
func (e *TransportError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case errors.Is(e.Err, context.DeadlineExceeded):
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}
