package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariable_UnmarshalLiteral(t *testing.T) {
	var w Workflow
	require.NoError(t, json.Unmarshal([]byte(`{
		"steps": [],
		"variables": {
			"region": "westeurope",
			"count": 3,
			"tags": ["a", "b"]
		}
	}`), &w))

	region := w.Variables["region"]
	assert.Nil(t, region.Decl)
	assert.Equal(t, "westeurope", region.Default())
	assert.Equal(t, "string", region.TypeName())
	assert.Equal(t, "", region.Description())

	assert.Equal(t, "number", w.Variables["count"].TypeName())
	assert.Equal(t, "array", w.Variables["tags"].TypeName())
}

func TestVariable_UnmarshalDeclaration(t *testing.T) {
	var w Workflow
	require.NoError(t, json.Unmarshal([]byte(`{
		"steps": [],
		"variables": {
			"name": {"type": "string", "default": "World", "description": "Who to greet"},
			"bare": {}
		}
	}`), &w))

	name := w.Variables["name"]
	require.NotNil(t, name.Decl)
	assert.Equal(t, "World", name.Default())
	assert.Equal(t, "string", name.TypeName())
	assert.Equal(t, "Who to greet", name.Description())

	// An empty object is still a declaration, not a literal map.
	bare := w.Variables["bare"]
	require.NotNil(t, bare.Decl)
	assert.Nil(t, bare.Default())
	assert.Equal(t, "any", bare.TypeName())
}

func TestVariable_MarshalRoundTrip(t *testing.T) {
	literal := Variable{Literal: "plain"}
	data, err := json.Marshal(literal)
	require.NoError(t, err)
	assert.JSONEq(t, `"plain"`, string(data))

	decl := Variable{Decl: &VariableDecl{Type: "string", Default: "x"}}
	data, err = json.Marshal(decl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","default":"x"}`, string(data))
}

func TestStep_EffectiveID(t *testing.T) {
	declared := Step{ID: "fetch"}
	assert.Equal(t, "fetch", declared.EffectiveID(3))

	positional := Step{}
	assert.Equal(t, "step_1", positional.EffectiveID(1))
	assert.Equal(t, "step_7", positional.EffectiveID(7))
}

func TestStep_DisplayName(t *testing.T) {
	named := Step{ID: "fetch", Name: "Fetch data"}
	assert.Equal(t, "Fetch data", named.DisplayName(1))

	unnamed := Step{ID: "fetch"}
	assert.Equal(t, "fetch", unnamed.DisplayName(1))

	bare := Step{}
	assert.Equal(t, "step_2", bare.DisplayName(2))
}

func TestErrorPolicy_ShouldAbort(t *testing.T) {
	abort := true
	cont := false

	var nilPolicy *ErrorPolicy
	assert.True(t, nilPolicy.ShouldAbort())
	assert.True(t, (&ErrorPolicy{}).ShouldAbort())
	assert.True(t, (&ErrorPolicy{Abort: &abort}).ShouldAbort())
	assert.False(t, (&ErrorPolicy{Abort: &cont}).ShouldAbort())
}

func TestErrorPolicy_AbortMessage(t *testing.T) {
	var nilPolicy *ErrorPolicy
	assert.Equal(t, "fallback", nilPolicy.AbortMessage("fallback"))
	assert.Equal(t, "fallback", (&ErrorPolicy{}).AbortMessage("fallback"))
	assert.Equal(t, "custom", (&ErrorPolicy{Message: "custom"}).AbortMessage("fallback"))
}

func TestValidation_ShouldAbort(t *testing.T) {
	cont := false
	assert.True(t, (&Validation{Condition: "x"}).ShouldAbort())
	assert.False(t, (&Validation{Condition: "x", Abort: &cont}).ShouldAbort())
}
