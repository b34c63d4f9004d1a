package workflow

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/pkg/schema"
)

const sampleWorkflow = `{
  "name": "Sample",
  "description": "A sample workflow",
  "steps": [
    {"id": "s1", "action": "template", "template": "hi", "outputs": {"out": ""}}
  ]
}`

func newTestLoader(t *testing.T) (*Loader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewLoader(fs, "workflows"), fs
}

func TestLoader_LoadAppendsExtension(t *testing.T) {
	loader, fs := newTestLoader(t)
	require.NoError(t, afero.WriteFile(fs, "workflows/sample.json", []byte(sampleWorkflow), 0o644))

	wf, err := loader.Load("sample")
	require.NoError(t, err)
	assert.Equal(t, "Sample", wf.Name)
	assert.Len(t, wf.Steps, 1)

	wf, err = loader.Load("sample.json")
	require.NoError(t, err)
	assert.Equal(t, "Sample", wf.Name)
}

func TestLoader_LoadMissingIsNotFound(t *testing.T) {
	loader, _ := newTestLoader(t)

	_, err := loader.Load("ghost")
	require.Error(t, err)

	var ferr *schema.FactotumError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, schema.ErrCodeNotFound, ferr.Code)
}

func TestLoader_LoadMalformedIsValidationError(t *testing.T) {
	loader, fs := newTestLoader(t)
	require.NoError(t, afero.WriteFile(fs, "workflows/bad.json", []byte("{oops"), 0o644))

	_, err := loader.Load("bad")
	require.Error(t, err)

	var ferr *schema.FactotumError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, schema.ErrCodeValidation, ferr.Code)
}

func TestLoader_LoadInline(t *testing.T) {
	loader, _ := newTestLoader(t)

	wf, err := loader.LoadInline(map[string]any{
		"name": "Inline",
		"steps": []any{
			map[string]any{"action": "template", "template": "x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Inline", wf.Name)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, schema.ActionTemplate, wf.Steps[0].Action)
}

func TestLoader_ListCreatesDirectory(t *testing.T) {
	loader, fs := newTestLoader(t)

	summaries, err := loader.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)

	exists, err := afero.DirExists(fs, "workflows")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoader_ListSummaries(t *testing.T) {
	loader, fs := newTestLoader(t)
	require.NoError(t, afero.WriteFile(fs, "workflows/a.json", []byte(sampleWorkflow), 0o644))
	require.NoError(t, afero.WriteFile(fs, "workflows/broken.json", []byte("{"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "workflows/notes.txt", []byte("ignored"), 0o644))

	summaries, err := loader.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "a", summaries[0].File)
	assert.Equal(t, "Sample", summaries[0].Name)
	assert.Equal(t, 1, summaries[0].StepCount)
	assert.False(t, summaries[0].ReadError)

	assert.Equal(t, "broken", summaries[1].File)
	assert.True(t, summaries[1].ReadError)
}

func TestLoader_ListTruncatesLongDescriptions(t *testing.T) {
	loader, fs := newTestLoader(t)

	long := make([]byte, 120)
	for i := range long {
		long[i] = 'd'
	}
	doc := `{"name": "Long", "description": "` + string(long) + `", "steps": [{"action": "template", "template": "x"}]}`
	require.NoError(t, afero.WriteFile(fs, "workflows/long.json", []byte(doc), 0o644))

	summaries, err := loader.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Len(t, summaries[0].Description, 80)
}
