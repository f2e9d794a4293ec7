package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hupe1980/storymesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(model.Request{Messages: []model.Message{
		model.SystemMessage("sys"),
		model.UserMessage("hi"),
		{Role: model.RoleAssistant, Content: "hello"},
		model.UserMessage(""),
	}})

	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}

func TestModel_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "The door creaks open."}, "finish_reason": "stop", "logprobs": null}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := model.Complete(context.Background(), m, model.Request{Messages: []model.Message{model.UserMessage("open door")}})
	require.NoError(t, err)
	assert.Equal(t, "The door creaks open.", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.Model = "gpt-4.1"
	})
	assert.Equal(t, model.Info{Name: "gpt-4.1", Provider: "openai"}, m.Info())
}
