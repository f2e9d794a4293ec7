package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/model"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector()
	ctx := WithStory(context.Background(), "s1")

	c.Record(ctx, "narrative_director", 30*time.Millisecond, true)
	c.Record(ctx, "narrative_director", 10*time.Millisecond, false)
	c.Record(context.Background(), "synthesis", 5*time.Millisecond, true)

	nd, ok := c.Operation("narrative_director")
	require.True(t, ok)
	assert.Equal(t, 2, nd.Count)
	assert.Equal(t, 1, nd.Errors)
	assert.Equal(t, 10*time.Millisecond, nd.Min)
	assert.Equal(t, 30*time.Millisecond, nd.Max)
	assert.Equal(t, 20*time.Millisecond, nd.Avg())

	story, ok := c.Story("s1")
	require.True(t, ok)
	assert.Equal(t, 2, story.TotalOperations)
	assert.Equal(t, 1, story.TotalErrors)
	assert.NotContains(t, story.Operations, "synthesis")

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.TotalOperations)
	assert.Equal(t, 1, snap.TotalErrors)
	assert.Len(t, snap.Operations, 2)

	_, ok = c.Operation("missing")
	assert.False(t, ok)
	assert.Zero(t, OperationStats{}.Avg())
}

func TestCollector_Tokens(t *testing.T) {
	c := NewCollector()
	ctx := WithStory(context.Background(), "s1")

	c.RecordTokens(ctx, "character", model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	c.RecordTokens(ctx, "character", model.TokenUsage{PromptTokens: 3, CompletionTokens: 2})

	op, ok := c.Operation("character")
	require.True(t, ok)
	assert.Equal(t, model.TokenUsage{PromptTokens: 13, CompletionTokens: 7, TotalTokens: 20}, op.Tokens)

	story, ok := c.Story("s1")
	require.True(t, ok)
	assert.Equal(t, 20, story.Tokens.TotalTokens)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	ctx := WithStory(context.Background(), "s1")
	c.Record(ctx, "op", time.Millisecond, true)

	snap := c.Snapshot()
	c.Record(ctx, "op", time.Millisecond, true)

	assert.Equal(t, 1, snap.Operations["op"].Count)
	assert.Equal(t, 1, snap.Stories["s1"].Operations["op"].Count)

	c.Reset()
	assert.Zero(t, c.Snapshot().TotalOperations)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(WithStory(context.Background(), "s1"), "op", time.Millisecond, i%5 != 0)
		}()
	}
	wg.Wait()

	op, _ := c.Operation("op")
	assert.Equal(t, 50, op.Count)
	assert.Equal(t, 10, op.Errors)
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	m := Multi{a, NoOp{}, b}

	done := Start(context.Background(), m, "synthesis")
	done(true)
	Tokens(context.Background(), m, "synthesis", model.TokenUsage{TotalTokens: 4})

	for _, c := range []*Collector{a, b} {
		op, ok := c.Operation("synthesis")
		require.True(t, ok)
		assert.Equal(t, 1, op.Count)
		assert.Equal(t, 4, op.Tokens.TotalTokens)
	}
}

func TestOrNoOp(t *testing.T) {
	assert.Equal(t, NoOp{}, OrNoOp(nil))
	c := NewCollector()
	assert.Same(t, c, OrNoOp(c))
	assert.Equal(t, "", StoryFromContext(context.Background()))
}
