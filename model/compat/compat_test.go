package compat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/storymesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "storymesh", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "deepseek-chat",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "You step forward."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL + "/v1"
		o.APIKey = "test"
		o.Headers = http.Header{"X-Title": []string{"storymesh"}}
	})

	resp, err := model.Complete(context.Background(), m, model.Request{Messages: []model.Message{
		model.SystemMessage("You are a narrator."),
		model.UserMessage("Go on."),
	}})
	require.NoError(t, err)
	assert.Equal(t, "You step forward.", resp.Text)
	assert.Equal(t, 10, resp.Usage.TotalTokens)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "deepseek-chat", got["model"])
}

func TestModel_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) { o.BaseURL = srv.URL })

	_, err := model.Complete(context.Background(), m, model.Request{Messages: []model.Message{model.UserMessage("x")}})
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "llama3"
		o.Provider = "ollama"
	})
	assert.Equal(t, model.Info{Name: "llama3", Provider: "ollama"}, m.Info())
}
