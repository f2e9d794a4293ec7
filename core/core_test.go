package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraits_CloneIsDeep(t *testing.T) {
	orig := Traits{
		"emotions": map[string]any{"fear": 0.4},
		"tags":     []any{"brave"},
	}

	clone := orig.Clone()
	clone["emotions"].(map[string]any)["fear"] = 0.9
	clone["tags"].([]any)[0] = "timid"

	assert.Equal(t, 0.4, orig["emotions"].(map[string]any)["fear"])
	assert.Equal(t, "brave", orig["tags"].([]any)[0])
}

func TestTraits_CloneNil(t *testing.T) {
	var traits Traits
	clone := traits.Clone()
	require.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestTraits_Emotions(t *testing.T) {
	tests := []struct {
		name   string
		traits Traits
		want   map[string]float64
	}{
		{"missing", Traits{}, map[string]float64{}},
		{"typed", Traits{"emotions": map[string]float64{"joy": 0.5}}, map[string]float64{"joy": 0.5}},
		{"decoded", Traits{"emotions": map[string]any{"joy": 0.5, "odd": "x", "n": 1}}, map[string]float64{"joy": 0.5, "n": 1}},
		{"wrong shape", Traits{"emotions": "happy"}, map[string]float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.traits.Emotions())
		})
	}
}

func TestTraits_Motivation(t *testing.T) {
	assert.Equal(t, "", Traits{}.Motivation())
	assert.Equal(t, "escape", Traits{TraitMotivation: "escape"}.Motivation())
}

func TestNextSectionOrder(t *testing.T) {
	assert.Equal(t, 1, NextSectionOrder(0))
	assert.Equal(t, 1, NextSectionOrder(-3))
	assert.Equal(t, 8, NextSectionOrder(7))
}

func TestNewProtagonist(t *testing.T) {
	p := NewProtagonist("s1")
	assert.Equal(t, "s1", p.StoryID)
	assert.Equal(t, ProtagonistName, p.Name)
	assert.Equal(t, "protagonist", p.Traits["role"])
}

func TestErrors(t *testing.T) {
	nf := fmt.Errorf("load: %w", NewNotFoundError("story", "s1"))
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsStorage(nf))

	var target *NotFoundError
	require.True(t, errors.As(nf, &target))
	assert.Equal(t, "story", target.Entity)
	assert.Equal(t, `story "s1" not found`, target.Error())

	driverErr := errors.New("disk full")
	se := NewStorageError("create section", driverErr)
	assert.True(t, IsStorage(se))
	assert.ErrorIs(t, se, driverErr)
	assert.Same(t, se, NewStorageError("outer", se))
	assert.NoError(t, NewStorageError("noop", nil))
}

func TestParseRelationshipType(t *testing.T) {
	rt, err := ParseRelationshipType("")
	require.NoError(t, err)
	assert.Equal(t, RelationshipUnknown, rt)

	rt, err = ParseRelationshipType("rival")
	require.NoError(t, err)
	assert.Equal(t, RelationshipRival, rt)

	_, err = ParseRelationshipType("nemesis")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
