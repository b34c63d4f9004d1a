package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScope_LookupVariable(t *testing.T) {
	s := NewRunScope()
	s.SetVariable("region", "swedencentral")

	v, ok := s.Lookup("region")
	require.True(t, ok)
	assert.Equal(t, "swedencentral", v)
}

func TestRunScope_LookupStepOutput(t *testing.T) {
	s := NewRunScope()
	s.AddStepOutputs("discover", map[string]any{"count": float64(3)})

	v, ok := s.Lookup("discover.count")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)
}

func TestRunScope_StepOutputsShadowVariables(t *testing.T) {
	s := NewRunScope()
	s.SetVariable("discover", map[string]any{"count": float64(1)})
	s.AddStepOutputs("discover", map[string]any{"count": float64(2)})

	v, ok := s.Lookup("discover.count")
	require.True(t, ok)
	assert.Equal(t, float64(2), v, "step outputs take precedence over variables")
}

func TestRunScope_FirstWriteWins(t *testing.T) {
	s := NewRunScope()
	s.AddStepOutputs("s1", map[string]any{"v": "first"})
	s.AddStepOutputs("s1", map[string]any{"v": "second"})

	v, ok := s.Lookup("s1.v")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestRunScope_LookupNestedMap(t *testing.T) {
	s := NewRunScope()
	s.AddStepOutputs("s1", map[string]any{
		"result": map[string]any{"inner": map[string]any{"value": "deep"}},
	})

	v, ok := s.Lookup("s1.result.inner.value")
	require.True(t, ok)
	assert.Equal(t, "deep", v)
}

func TestRunScope_LookupMiss(t *testing.T) {
	s := NewRunScope()
	s.SetVariable("present", "yes")

	_, ok := s.Lookup("absent")
	assert.False(t, ok)

	_, ok = s.Lookup("present.not_a_map")
	assert.False(t, ok, "tail segments into a non-map miss")
}

func TestRunScope_PushLoopVarRestores(t *testing.T) {
	s := NewRunScope()
	s.SetVariable("item", "outer")

	restore := s.PushLoopVar("item", "inner")
	v, _ := s.Variable("item")
	assert.Equal(t, "inner", v)

	restore()
	v, _ = s.Variable("item")
	assert.Equal(t, "outer", v)
}

func TestRunScope_PushLoopVarRemovesFresh(t *testing.T) {
	s := NewRunScope()

	restore := s.PushLoopVar("item", 1)
	restore()

	_, ok := s.Variable("item")
	assert.False(t, ok, "a fresh loop variable is removed on restore")
}

func TestNested_MapsAndSlices(t *testing.T) {
	obj := map[string]any{
		"items": []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b"},
		},
	}

	v, ok := Nested(obj, "items.1.name")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = Nested(obj, "")
	require.True(t, ok)
	assert.Equal(t, obj, v)

	_, ok = Nested(obj, "items.5.name")
	assert.False(t, ok)

	_, ok = Nested(obj, "items.x")
	assert.False(t, ok)
}
