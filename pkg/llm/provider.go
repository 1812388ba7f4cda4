package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Tool describes a function the model may call instead of answering.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]interface{}
}

// ToolCall is a function call requested by the model. Arguments is the raw
// JSON text the model produced and may be malformed.
type ToolCall struct {
	Name      string
	Arguments string
}

// StreamChunk is one streamed delta: content text, a completed tool call, or both.
type StreamChunk struct {
	Content  string
	ToolCall *ToolCall
}

// StreamHandler receives chunks in order. Returning an error aborts the stream.
type StreamHandler func(chunk StreamChunk) error

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	Tools       []Tool
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTools(tools ...Tool) Option {
	return func(o *Options) {
		o.Tools = append(o.Tools, tools...)
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// StreamChat streams the model's reply to history into handler. It returns
	// after the last chunk, on handler error, or when ctx is done.
	StreamChat(ctx context.Context, history []Message, handler StreamHandler, options ...Option) error
}

// ApplyOptions resolves options over the given defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
