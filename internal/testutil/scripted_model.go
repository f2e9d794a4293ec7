package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/storymesh/model"
)

// Role identifies which pipeline stage issued a completion request.
type Role string

// Pipeline roles recognised by ScriptedModel.
const (
	RoleDirector     Role = "director"
	RoleWorld        Role = "world"
	RoleMemory       Role = "memory"
	RoleCharacter    Role = "character"
	RoleSynthesis    Role = "synthesis"
	RoleIntroduction Role = "introduction"
)

// Default replies used when a role has no scripted reply.
const (
	DirectorReply  = `{"reasoning":"r","action":"a","narrative_options":[{"description":"Search the desk drawers","impact_rating":4,"tension_change":1}],"selected_direction":"Reveal a hidden note","pacing_assessment":"steady","tension_level":4}`
	WorldReply     = `{"reasoning":"r","action":"a","world_effects":["Dust rises"],"consistency_issues":[],"physics_allowed":true}`
	MemoryReply    = `{"reasoning":"r","action":"a","selected_memories":[],"relevance_reasoning":"nothing relevant"}`
	CharacterReply = `{"reasoning":"r","action":"Looks around","dialogue":"Hm.","emotions":{"curious":0.7},"motivation":"Find answers"}`
	SynthesisReply = "You search the room and find a hidden note. What will you do next?"
	IntroReply     = "Rain drums on the harbour roofs as your story begins."
)

// RoleOf classifies a request by the prompts the pipeline sends.
func RoleOf(req model.Request) Role {
	system := req.System()
	switch {
	case strings.Contains(system, "Narrative Director Agent"):
		return RoleDirector
	case strings.Contains(system, "World State Agent"):
		return RoleWorld
	case strings.Contains(system, "Memory Curator Agent"):
		return RoleMemory
	case strings.Contains(system, "A character agent"):
		return RoleCharacter
	case strings.Contains(req.LastUser(), "opening scene"):
		return RoleIntroduction
	default:
		return RoleSynthesis
	}
}

// ScriptedModel answers each pipeline role with a canned reply or error and
// records every request by role. Safe for concurrent use.
type ScriptedModel struct {
	mu      sync.Mutex
	replies map[Role]func(req model.Request) (string, error)
	calls   map[Role][]model.Request
	order   []Role
}

// NewScriptedModel returns a model answering every role with its default reply.
func NewScriptedModel() *ScriptedModel {
	m := &ScriptedModel{
		replies: map[Role]func(model.Request) (string, error){},
		calls:   map[Role][]model.Request{},
	}
	for role, text := range map[Role]string{
		RoleDirector:     DirectorReply,
		RoleWorld:        WorldReply,
		RoleMemory:       MemoryReply,
		RoleCharacter:    CharacterReply,
		RoleSynthesis:    SynthesisReply,
		RoleIntroduction: IntroReply,
	} {
		m.Reply(role, text)
	}
	return m
}

// Reply scripts a fixed reply for role (chainable).
func (m *ScriptedModel) Reply(role Role, text string) *ScriptedModel {
	return m.Handle(role, func(model.Request) (string, error) { return text, nil })
}

// Fail scripts an error for role (chainable).
func (m *ScriptedModel) Fail(role Role, err error) *ScriptedModel {
	return m.Handle(role, func(model.Request) (string, error) { return "", err })
}

// Handle scripts a custom handler for role (chainable).
func (m *ScriptedModel) Handle(role Role, fn func(req model.Request) (string, error)) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[role] = fn
	return m
}

// Calls returns the requests received for role.
func (m *ScriptedModel) Calls(role Role) []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Request(nil), m.calls[role]...)
}

// Order returns the roles in the order requests arrived.
func (m *ScriptedModel) Order() []Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Role(nil), m.order...)
}

// Generate implements model.Model.
func (m *ScriptedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	role := RoleOf(req)
	m.mu.Lock()
	m.calls[role] = append(m.calls[role], req)
	m.order = append(m.order, role)
	fn := m.replies[role]
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if fn == nil {
			errCh <- fmt.Errorf("no reply scripted for role %s", role)
			return
		}
		text, err := fn(req)
		if err != nil {
			errCh <- err
			return
		}
		out <- model.Response{Text: text, FinishReason: "stop"}
	}()
	return out, errCh
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info { return model.Info{Name: "scripted", Provider: "test"} }
