// Package inference is the HTTP client layer for the OpenAI-compatible
// extraction backends. It owns request shaping, the reproducibility
// contract, token budgeting, retries, rate limiting, the circuit
// breaker, and the connection state machine.
package inference

import (
	"encoding/json"
	"fmt"
)

// Service identifies one backend endpoint.
type Service string

const (
	ServiceInstruct   Service = "instruct"   // entity extraction waves
	ServiceThinking   Service = "thinking"   // relationship extraction
	ServiceEmbeddings Service = "embeddings" // not used by the extraction core
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completion request body. GuidedJSON carries the
// JSON-Schema the backend enforces during decoding.
type Request struct {
	Model       string          `json:"model"`
	Messages    []Message       `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
	TopK        int             `json:"top_k,omitempty"`
	Seed        int64           `json:"seed"`
	Stream      bool            `json:"stream"`
	Stop        []string        `json:"stop,omitempty"`
	GuidedJSON  json.RawMessage `json:"guided_json,omitempty"`
}

// Response is the chat-completion response body.
type Response struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}

// Choice is one completion choice.
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage carries the generated content.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Content returns the first choice's content, or an error when the
// response carries no choices.
func (r *Response) Content() (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("backend error: %s", r.Error.Message)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return r.Choices[0].Message.Content, nil
}

// ConnState is the client connection state.
type ConnState int32

const (
	StateNotReady ConnState = iota
	StateConnecting
	StateReady
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateNotReady:
		return "not_ready"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Stats is a point-in-time snapshot of client counters.
type Stats struct {
	Requests   int64 `json:"requests"`
	Failures   int64 `json:"failures"`
	Retries    int64 `json:"retries"`
	TokensUsed int64 `json:"tokens_used"`
	InFlight   int64 `json:"in_flight"`
}
