package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
)

// Provider is one model backend. Generate returns JSON that already passed
// the request's schema, when one was given.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

type Request struct {
	System   string
	Messages []Message
	// Schema switches the backend to its native structured output mode.
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
	// Images ride along with Content in the same turn.
	Images []Image
}

// Image is an inline picture attached to a user turn.
type Image struct {
	MIME string
	Data []byte
}

func (img Image) Base64() string { return base64.StdEncoding.EncodeToString(img.Data) }

func (img Image) DataURL() string { return "data:" + img.MIME + ";base64," + img.Base64() }

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema document. Name doubles as the cache key for
// the compiled validator, so two schemas must not share a name.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string
	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserText builds the common single-turn request. Images, if any, are sent
// after the prompt text.
func UserText(system, prompt string, schema *Schema, maxTokens int, images ...Image) Request {
	return Request{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: prompt, Images: images}},
		Schema:    schema,
		MaxTokens: maxTokens,
	}
}
