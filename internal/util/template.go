// Package util holds small helpers shared by the prompt-building packages.
package util

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"bullets": func(items []string) string {
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = "- " + item
		}
		return strings.Join(lines, "\n")
	},
	"kv": FormatKV,
}

// RenderTemplate executes text as a text/template against data. Text without
// template markers is returned unchanged.
func RenderTemplate(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// MustParse parses a template once at package init. It panics on malformed
// templates, which are programming errors.
func MustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text))
}

// Execute runs a parsed template and returns the output.
func Execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// FormatKV renders a map as "k: v" pairs joined by sep with keys sorted, so
// prompts are stable across runs.
func FormatKV(sep string, m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, m[k])
	}
	return strings.Join(parts, sep)
}
