package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

func writeJSONFile(t *testing.T, fs afero.Fs, path string, data map[string]any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, raw, 0o644))
}

func readJSONFile(t *testing.T, fs afero.Fs, path string) map[string]any {
	t.Helper()
	raw, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func TestJSONFileHandler_UpdatesNestedKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeJSONFile(t, fs, "settings.json", map[string]any{
		"Values": map[string]any{"AZURE_OPENAI_ENDPOINT": "old"},
	})

	h := NewJSONFileHandler(fs)
	step := &schema.Step{
		Action:   schema.ActionUpdateJSONFile,
		FilePath: "settings.json",
		Updates:  map[string]any{"Values.AZURE_OPENAI_ENDPOINT": "new"},
	}

	result := h.Execute(context.Background(), step, expressions.NewRunScope())
	require.True(t, result.Success, result.Err)

	assert.Equal(t, true, result.Outputs["updated"])
	assert.Equal(t, "old", result.Outputs["previous_Values_AZURE_OPENAI_ENDPOINT"])

	data := readJSONFile(t, fs, "settings.json")
	values := data["Values"].(map[string]any)
	assert.Equal(t, "new", values["AZURE_OPENAI_ENDPOINT"])
}

func TestJSONFileHandler_MissingFileStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := NewJSONFileHandler(fs)
	step := &schema.Step{
		Action:   schema.ActionUpdateJSONFile,
		FilePath: "fresh.json",
		Updates:  map[string]any{"a.b.c": "deep"},
	}

	result := h.Execute(context.Background(), step, expressions.NewRunScope())
	require.True(t, result.Success, result.Err)
	assert.Nil(t, result.Outputs["previous_a_b_c"])

	data := readJSONFile(t, fs, "fresh.json")
	assert.Equal(t, "deep", data["a"].(map[string]any)["b"].(map[string]any)["c"])
}

func TestJSONFileHandler_SubstitutesPathAndValues(t *testing.T) {
	fs := afero.NewMemMapFs()
	scope := expressions.NewRunScope()
	scope.SetVariable("file", "config.json")
	scope.AddStepOutputs("deploy", map[string]any{"endpoint": "https://x.example.com/"})

	h := NewJSONFileHandler(fs)
	step := &schema.Step{
		Action:   schema.ActionUpdateJSONFile,
		FilePath: "${file}",
		Updates:  map[string]any{"endpoint": "${deploy.endpoint}"},
	}

	result := h.Execute(context.Background(), step, scope)
	require.True(t, result.Success, result.Err)

	data := readJSONFile(t, fs, "config.json")
	assert.Equal(t, "https://x.example.com/", data["endpoint"])
}

func TestJSONFileHandler_NonObjectIntermediateFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeJSONFile(t, fs, "bad.json", map[string]any{"leaf": "scalar"})

	h := NewJSONFileHandler(fs)
	step := &schema.Step{
		Action:   schema.ActionUpdateJSONFile,
		FilePath: "bad.json",
		Updates:  map[string]any{"leaf.inner": "x"},
	}

	result := h.Execute(context.Background(), step, expressions.NewRunScope())
	require.False(t, result.Success)
	assert.Contains(t, result.Err, "is not an object")
}

func TestJSONFileHandler_MalformedFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.json", []byte("{not json"), 0o644))

	h := NewJSONFileHandler(fs)
	step := &schema.Step{
		Action:   schema.ActionUpdateJSONFile,
		FilePath: "broken.json",
		Updates:  map[string]any{"k": "v"},
	}

	result := h.Execute(context.Background(), step, expressions.NewRunScope())
	assert.False(t, result.Success)
}
