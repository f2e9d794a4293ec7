// Package metrics records how long pipeline operations take, whether they
// succeeded and how many tokens they consumed. The orchestrator reports to a
// Recorder; Collector aggregates in process, telemetry.SpanRecorder exports
// to OpenTelemetry and Multi fans out to several recorders.
package metrics

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/hupe1980/storymesh/model"
)

// Recorder receives one observation per completed operation.
type Recorder interface {
	Record(ctx context.Context, op string, d time.Duration, success bool)
}

// TokenRecorder is implemented by recorders that also track token usage.
type TokenRecorder interface {
	RecordTokens(ctx context.Context, op string, usage model.TokenUsage)
}

type storyKey struct{}

// WithStory attaches the story id observations made under ctx belong to.
func WithStory(ctx context.Context, storyID string) context.Context {
	return context.WithValue(ctx, storyKey{}, storyID)
}

// StoryFromContext returns the story id set by WithStory, or "".
func StoryFromContext(ctx context.Context) string {
	id, _ := ctx.Value(storyKey{}).(string)
	return id
}

// Start begins timing op. Calling the returned func records the observation.
func Start(ctx context.Context, r Recorder, op string) func(success bool) {
	started := time.Now()
	return func(success bool) {
		r.Record(ctx, op, time.Since(started), success)
	}
}

// Tokens forwards usage to r when r is a TokenRecorder.
func Tokens(ctx context.Context, r Recorder, op string, usage model.TokenUsage) {
	if tr, ok := r.(TokenRecorder); ok {
		tr.RecordTokens(ctx, op, usage)
	}
}

// NoOp discards every observation.
type NoOp struct{}

// Record implements Recorder.
func (NoOp) Record(context.Context, string, time.Duration, bool) {}

// OrNoOp returns r, or NoOp when r is nil.
func OrNoOp(r Recorder) Recorder {
	if r == nil {
		return NoOp{}
	}
	return r
}

// Multi fans observations out to every recorder in order.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, op string, d time.Duration, success bool) {
	for _, r := range m {
		r.Record(ctx, op, d, success)
	}
}

// RecordTokens implements TokenRecorder.
func (m Multi) RecordTokens(ctx context.Context, op string, usage model.TokenUsage) {
	for _, r := range m {
		Tokens(ctx, r, op, usage)
	}
}

// OperationStats summarises every observation of one operation.
type OperationStats struct {
	Count  int              `json:"count"`
	Errors int              `json:"errors"`
	Total  time.Duration    `json:"total_time"`
	Min    time.Duration    `json:"min_time"`
	Max    time.Duration    `json:"max_time"`
	Tokens model.TokenUsage `json:"token_usage"`
}

// Avg returns the mean duration, or 0 without observations.
func (s OperationStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func (s *OperationStats) observe(d time.Duration, success bool) {
	if s.Count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Count++
	s.Total += d
	if !success {
		s.Errors++
	}
}

func addUsage(dst *model.TokenUsage, u model.TokenUsage) {
	dst.PromptTokens += u.PromptTokens
	dst.CompletionTokens += u.CompletionTokens
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	dst.TotalTokens += u.TotalTokens
}

// StoryStats summarises the observations made for one story.
type StoryStats struct {
	Operations      map[string]OperationStats `json:"operations"`
	TotalOperations int                       `json:"total_operations"`
	TotalErrors     int                       `json:"total_errors"`
	Tokens          model.TokenUsage          `json:"token_usage"`
	FirstSeen       time.Time                 `json:"creation_time"`
}

// Snapshot is a point-in-time copy of a Collector.
type Snapshot struct {
	Operations      map[string]OperationStats `json:"operations"`
	Stories         map[string]StoryStats     `json:"stories"`
	TotalOperations int                       `json:"total_operations"`
	TotalErrors     int                       `json:"total_errors"`
}

// Collector aggregates observations in memory. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	now     func() time.Time
	ops     map[string]*OperationStats
	stories map[string]*StoryStats
	total   int
	errors  int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	c := &Collector{now: time.Now}
	c.Reset()
	return c
}

var (
	_ Recorder      = (*Collector)(nil)
	_ TokenRecorder = (*Collector)(nil)
)

// Record implements Recorder.
func (c *Collector) Record(ctx context.Context, op string, d time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.op(op).observe(d, success)
	c.total++
	if !success {
		c.errors++
	}

	if st := c.story(StoryFromContext(ctx)); st != nil {
		stats := st.Operations[op]
		stats.observe(d, success)
		st.Operations[op] = stats
		st.TotalOperations++
		if !success {
			st.TotalErrors++
		}
	}
}

// RecordTokens implements TokenRecorder.
func (c *Collector) RecordTokens(ctx context.Context, op string, usage model.TokenUsage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addUsage(&c.op(op).Tokens, usage)
	if st := c.story(StoryFromContext(ctx)); st != nil {
		addUsage(&st.Tokens, usage)
	}
}

func (c *Collector) op(name string) *OperationStats {
	s, ok := c.ops[name]
	if !ok {
		s = &OperationStats{}
		c.ops[name] = s
	}
	return s
}

func (c *Collector) story(id string) *StoryStats {
	if id == "" {
		return nil
	}
	s, ok := c.stories[id]
	if !ok {
		s = &StoryStats{Operations: map[string]OperationStats{}, FirstSeen: c.now().UTC()}
		c.stories[id] = s
	}
	return s
}

// Operation returns the stats of one operation.
func (c *Collector) Operation(op string) (OperationStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.ops[op]
	if !ok {
		return OperationStats{}, false
	}
	return *s, true
}

// Story returns the stats of one story.
func (c *Collector) Story(id string) (StoryStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stories[id]
	if !ok {
		return StoryStats{}, false
	}
	cp := *s
	cp.Operations = maps.Clone(s.Operations)
	return cp, true
}

// Snapshot copies the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Operations:      make(map[string]OperationStats, len(c.ops)),
		Stories:         make(map[string]StoryStats, len(c.stories)),
		TotalOperations: c.total,
		TotalErrors:     c.errors,
	}
	for name, s := range c.ops {
		snap.Operations[name] = *s
	}
	for id, s := range c.stories {
		cp := *s
		cp.Operations = maps.Clone(s.Operations)
		snap.Stories[id] = cp
	}
	return snap
}

// Reset drops every observation.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = map[string]*OperationStats{}
	c.stories = map[string]*StoryStats{}
	c.total, c.errors = 0, 0
}
