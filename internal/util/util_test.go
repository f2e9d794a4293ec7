package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "prose around", in: "Sure! Here it is: {\"a\": {\"b\": 2}} hope that helps", want: `{"a": {"b": 2}}`},
		{name: "brace in prose first", in: "use {curly} then {\"ok\": true}", want: `{"ok": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	_, err := ExtractJSON("The hero walks away.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON(`{"unterminated": `)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	out, err = RenderTemplate(`{{.Name | upper}} ({{default "n/a" .Missing}})`, map[string]any{"Name": "rin"})
	require.NoError(t, err)
	assert.Equal(t, "RIN (n/a)", out)

	_, err = RenderTemplate("{{.Broken", nil)
	assert.Error(t, err)
}

func TestFormatKV(t *testing.T) {
	assert.Equal(t, "a: 1, b: x", FormatKV(", ", map[string]any{"b": "x", "a": 1}))
	assert.Equal(t, "", FormatKV(", ", nil))
}

func TestExecute(t *testing.T) {
	tmpl := MustParse("t", "{{bullets .}}")
	out, err := Execute(tmpl, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, "- one\n- two", out)
}
