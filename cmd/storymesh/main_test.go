package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/store/memory"
)

func TestRunPlay(t *testing.T) {
	ctx := context.Background()
	m := testutil.NewScriptedModel()
	sm := storymesh.New(m, memory.New())
	testutil.NewStoryBuilder("s1").Section("You wake up.").Build(t, sm.Store())

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, runPlay(ctx, cmd, sm, "s1", strings.NewReader("1\n\nquit\n")))

	assert.Contains(t, out.String(), "1. Search the desk drawers")
	assert.Contains(t, out.String(), testutil.SynthesisReply)

	// The first suggestion was sent as the reader's choice.
	calls := m.Calls(testutil.RoleSynthesis)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].LastUser(), "Search the desk drawers")
}

func TestRunPlay_EOF(t *testing.T) {
	sm := storymesh.New(testutil.NewScriptedModel(), memory.New())
	testutil.NewStoryBuilder("s1").Build(t, sm.Store())

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.NoError(t, runPlay(context.Background(), cmd, sm, "s1", strings.NewReader("")))
}

func TestParseKeyValues(t *testing.T) {
	kv, err := parseKeyValues([]string{"mood=calm", " role = detective "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mood": "calm", "role": "detective"}, kv)

	_, err = parseKeyValues([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseKeyValues([]string{"=x"})
	assert.Error(t, err)
}
