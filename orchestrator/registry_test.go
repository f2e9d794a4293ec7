package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/fallback"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_ConcurrentGetOrCreateSharesInstance(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Character("c1", "Rin").Build(t, store)
	r := NewRegistry(testutil.NewScriptedModel(), store)

	const n = 16
	results := make([]*Orchestrator, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := r.GetOrCreate(context.Background(), "s1")
			assert.NoError(t, err)
			results[i] = o
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, o := range results {
		assert.Same(t, results[0], o)
	}
	assert.Equal(t, StateReady, results[0].State())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_MissingStoryIsNotCached(t *testing.T) {
	r := NewRegistry(testutil.NewScriptedModel(), memory.New())
	_, err := r.GetOrCreate(context.Background(), "nope")
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, r.Len())
}

func TestRegistry_TTL(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Build(t, store)
	testutil.NewStoryBuilder("s2").Build(t, store)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(testutil.NewScriptedModel(), store, func(o *RegistryOptions) {
		o.TTL = time.Minute
		o.Now = clock.Now
	})
	ctx := context.Background()

	first, err := r.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	_, err = r.GetOrCreate(ctx, "s2")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	again, err := r.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, first, again)

	clock.Advance(45 * time.Second)
	_, ok := r.Get("s2")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	clock.Advance(2 * time.Minute)
	fresh, err := r.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestRegistry_EvictAndClear(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Build(t, store)
	testutil.NewStoryBuilder("s2").Build(t, store)
	r := NewRegistry(testutil.NewScriptedModel(), store)
	ctx := context.Background()

	first, err := r.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	_, err = r.GetOrCreate(ctx, "s2")
	require.NoError(t, err)

	assert.True(t, r.Evict("s1"))
	assert.False(t, r.Evict("s1"))
	rebuilt, err := r.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)

	r.Clear()
	assert.Zero(t, r.Len())
}

func TestRegistry_CanceledContext(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Build(t, store)
	r := NewRegistry(testutil.NewScriptedModel(), store)

	unlock, err := r.locks.Lock(context.Background(), "s1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.GetOrCreate(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIntroduction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	testutil.NewStoryBuilder("s1").Genre("fantasy", "courage", "A mountain pass").Build(t, store)
	m := testutil.NewScriptedModel()
	o := newOrchestrator(t, store, m)

	text, err := o.GenerateIntroduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.IntroReply, text)
	assert.Equal(t, []int{1}, sectionOrders(t, store, "s1"))

	call := m.Calls(testutil.RoleIntroduction)[0]
	assert.Contains(t, call.System(), "fantasy writer")
	assert.Contains(t, call.LastUser(), "- Theme: courage")

	// A story that already opened is not given a second first section.
	_, err = o.GenerateIntroduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sectionOrders(t, store, "s1"))
}

func TestIntroduction_ProviderFailure(t *testing.T) {
	store := memory.New()
	testutil.NewStoryBuilder("s1").Genre("fantasy", "courage", "A mountain pass").Build(t, store)
	o := newOrchestrator(t, store, testutil.NewScriptedModel().Fail(testutil.RoleIntroduction, errors.New("down")))

	text, err := o.GenerateIntroduction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallback.Introduction("fantasy", "courage", "A mountain pass"), text)
	assert.Empty(t, sectionOrders(t, store, "s1"))
}

func TestIntroduction_MissingStory(t *testing.T) {
	o := New("nope", testutil.NewScriptedModel(), memory.New())
	_, err := o.GenerateIntroduction(context.Background())
	assert.True(t, core.IsNotFound(err))
}
