// Package compat provides a model.Model for OpenAI-compatible chat endpoints
// (DeepSeek, OpenRouter, Ollama, vLLM, ...) built on the community
// go-openai client, which accepts an arbitrary base URL and extra headers.
package compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/storymesh/model"
	"github.com/sashabaranov/go-openai"
)

// Well known base URLs.
const (
	DeepSeekBaseURL   = "https://api.deepseek.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OllamaBaseURL     = "http://localhost:11434/v1"
)

// Options configure the compatible endpoint adapter.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	APIKey      string
	BaseURL     string
	// Provider is reported by Info; defaults to "compat".
	Provider string
	// Headers are added to every request (e.g. OpenRouter's HTTP-Referer).
	Headers http.Header
}

// Model talks to an OpenAI-compatible endpoint.
type Model struct {
	client *openai.Client
	opts   Options
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// NewModel creates a compatible endpoint model.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "deepseek-chat",
		Temperature: 0.7,
		MaxTokens:   1000,
		BaseURL:     DeepSeekBaseURL,
		Provider:    "compat",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if len(opts.Headers) > 0 {
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: opts.Headers}}
	}
	return &Model{client: openai.NewClientWithConfig(config), opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		creq := openai.ChatCompletionRequest{
			Model:       m.opts.Model,
			Messages:    buildMessages(req.Messages),
			Temperature: m.opts.Temperature,
			MaxTokens:   m.opts.MaxTokens,
		}
		if req.Stream {
			m.handleStreaming(ctx, creq, out, errCh)
			return
		}
		resp, err := m.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			errCh <- fmt.Errorf("failed to create chat completion: %w", err)
			return
		}
		if len(resp.Choices) == 0 {
			errCh <- fmt.Errorf("no choices returned")
			return
		}
		out <- model.Response{
			ID:           resp.ID,
			Text:         resp.Choices[0].Message.Content,
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage: &model.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}()
	return out, errCh
}

func (m *Model) handleStreaming(ctx context.Context, creq openai.ChatCompletionRequest, out chan<- model.Response, errCh chan<- error) {
	creq.Stream = true
	stream, err := m.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		errCh <- fmt.Errorf("failed to open completion stream: %w", err)
		return
	}
	defer stream.Close()

	var (
		text   strings.Builder
		id     string
		finish = "stop"
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errCh <- fmt.Errorf("completion stream error: %w", err)
			return
		}
		id = chunk.ID
		for _, ch := range chunk.Choices {
			if ch.Delta.Content != "" {
				text.WriteString(ch.Delta.Content)
				out <- model.Response{ID: id, Partial: true, Text: ch.Delta.Content}
			}
			if ch.FinishReason != "" {
				finish = string(ch.FinishReason)
			}
		}
	}
	out <- model.Response{ID: id, Text: text.String(), FinishReason: finish}
}

func buildMessages(msgs []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: m.opts.Provider}
}
