package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/store/memory"
)

func directorReplyWithOptions(descriptions ...string) string {
	opts := make([]string, len(descriptions))
	for i, d := range descriptions {
		opts[i] = fmt.Sprintf(`{"description":%q,"impact_rating":5,"tension_change":0}`, d)
	}
	return `{"reasoning":"r","action":"a","narrative_options":[` + strings.Join(opts, ",") +
		`],"selected_direction":"x","pacing_assessment":"steady","tension_level":5}`
}

func firstVerb(int) int { return 0 }

func TestSuggestions_NoSections(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Build(t, store)
	m := testutil.NewScriptedModel()
	o := newOrchestrator(t, store, m)

	got, err := o.GenerateStorySuggestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Begin your adventure", "Explore your surroundings", "Talk to someone nearby"}, got)
	assert.Empty(t, m.Calls(testutil.RoleDirector))
}

func TestSuggestions_AlwaysThree(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		want    []string
	}{
		{
			name:    "no options",
			options: nil,
			want:    []string{"Explore your surroundings", "Talk to someone nearby", "Look for clues or useful items"},
		},
		{
			name:    "one option",
			options: []string{"Open the cellar door"},
			want:    []string{"Open the cellar door", "Talk to someone nearby", "Look for clues or useful items"},
		},
		{
			name:    "two options",
			options: []string{"You should ask the barman", "the old lighthouse"},
			want:    []string{"ask the barman", "Explore the old lighthouse", "Look for clues or useful items"},
		},
		{
			name:    "more than three",
			options: []string{"Go north", "Hide", "Run", "Fight"},
			want:    []string{"Go north", "Hide", "Run"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			testutil.NewStoryBuilder("s1").Section("You wake up.").Build(t, store)
			m := testutil.NewScriptedModel().Reply(testutil.RoleDirector, directorReplyWithOptions(tt.options...))
			o := newOrchestrator(t, store, m, func(o *Options) { o.Intn = firstVerb })

			got, err := o.GenerateStorySuggestions(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			calls := m.Calls(testutil.RoleDirector)
			require.Len(t, calls, 1)
			assert.Contains(t, calls[0].LastUser(), "Current situation: You wake up.")
		})
	}
}

func TestSuggestions_DirectorFailure(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Section("You wake up.").Build(t, store)
	o := newOrchestrator(t, store, testutil.NewScriptedModel().Fail(testutil.RoleDirector, errors.New("down")))

	got, err := o.GenerateStorySuggestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallback.Suggestions(nil), got)
}

func TestSuggestions_MissingStory(t *testing.T) {
	o := New("nope", testutil.NewScriptedModel(), memory.New())
	got, err := o.GenerateStorySuggestions(context.Background())
	require.Error(t, err)
	assert.Len(t, got, SuggestionCount)
}

func TestToAction(t *testing.T) {
	pick := func(i int) func(int) int { return func(int) int { return i } }
	tests := []struct {
		in   string
		pick int
		want string
	}{
		{"  Search the attic ", 0, "Search the attic"},
		{"The character should examine the map", 0, "examine the map"},
		{"The protagonist should the harbour", 2, "Check out the harbour"},
		{"You should confront Mara", 4, "Talk to confront Mara"},
		{"\"Look\" behind the curtain", 0, "\"Look\" behind the curtain"},
		{"Golden light spills in", 1, "Investigate Golden light spills in"},
		{"", 5, "Search"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toAction(tt.in, pick(tt.pick)), tt.in)
	}
}

func TestPadSuggestions(t *testing.T) {
	assert.Equal(t, genericSuggestions[:3], padSuggestions(nil))
	assert.Equal(t, []string{"a", "b", "c"}, padSuggestions([]string{"a", "b", "c", "d"}))
}
