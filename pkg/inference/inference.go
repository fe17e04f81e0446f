// Package inference provides the LLM provider abstraction for go-naochat.
//
// The conversational core treats the model as a black box behind the
// Provider interface: a transcript plus a per-session system instruction go
// in, raw text comes out. The Gemini adapter is the production
// implementation; Mock serves the tests.
//
// Example usage:
//
//	ring := inference.NewKeyRing(os.Getenv("GOOGLE_API_KEY"))
//	provider, _ := inference.NewGemini(
//	    inference.WithKeyRing(ring),
//	    inference.WithModel("gemini-2.0-flash"),
//	)
//	defer provider.Close()
//
//	resp, _ := provider.Chat(ctx, &inference.ChatRequest{
//	    SystemInstruction: "Sei un robot sociale amichevole",
//	    Messages: []inference.Message{
//	        {Role: inference.RoleUser, Content: "Ciao!"},
//	    },
//	})
package inference

import "context"

// Provider is the inference interface the orchestrator depends on.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks provider connectivity and credential validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation window sent to the model.
	Messages []Message

	// SystemInstruction is the per-session system prompt.
	SystemInstruction string

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64

	// TopP controls nucleus sampling.
	TopP float64

	// TopK controls top-k sampling.
	TopK int

	// ResponseMIMEType requests a structured output format
	// (e.g. "application/json").
	ResponseMIMEType string
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's raw reply.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}
