package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoResponse is returned by Complete when a model closes its channels
// without emitting a final response.
var ErrNoResponse = errors.New("model returned no final response")

// Message is one role-tagged text block of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system role message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// UserMessage builds a user role message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// Request captures the normalized model input produced by agents.
type Request struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// System returns the concatenated content of all system messages.
func (r Request) System() string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// LastUser returns the content of the last user message, or "".
func (r Request) LastUser() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"` // Indicates if this is a partial response
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "compat", "mock"
}

// Model is the minimal interface required by agents to drive generation.
// Generate emits zero or more partial responses followed by one final
// response, or an error. Both channels are closed when generation ends.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Complete drains Generate and returns the final response. It is the
// text-completion contract the narrative pipeline relies on; retries, if
// any, belong to the adapter.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		got   bool
	)
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final = r
				got = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	if !got {
		return Response{}, ErrNoResponse
	}
	return final, nil
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Responses are looked up by the last user message; a handler, when set,
// takes precedence and may also return errors. Safe for concurrent use.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	handler   func(req Request) (string, error)
	calls     []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetHandler installs a function computing the completion for each request.
func (m *MockModel) SetHandler(fn func(req Request) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// Calls returns a copy of every request received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls = append(m.calls, req)
	handler := m.handler
	canned := m.responses[req.LastUser()]
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		full := canned
		if handler != nil {
			out, err := handler(req)
			if err != nil {
				errCh <- err
				return
			}
			full = out
		}
		if full == "" && handler == nil {
			full = fmt.Sprintf("Mock response to: %s", req.LastUser())
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Text: full, FinishReason: "stop"}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
