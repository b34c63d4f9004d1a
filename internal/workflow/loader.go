package workflow

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"factotum/pkg/schema"
)

// Loader reads workflow documents from a configured directory. Documents are
// stored one per file as JSON playbooks.
type Loader struct {
	fs  afero.Fs
	dir string
}

// NewLoader creates a Loader rooted at dir on the given filesystem.
func NewLoader(fs afero.Fs, dir string) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, dir: dir}
}

// Dir returns the workflows directory.
func (l *Loader) Dir() string { return l.dir }

// Load reads a workflow by name, appending the .json extension when missing.
// A missing file is a NOT_FOUND error; malformed JSON is a validation error.
func (l *Loader) Load(name string) (*schema.Workflow, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	path := filepath.Join(l.dir, name)

	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStorage, err.Error())
	}
	if !exists {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "Workflow not found: %s", path)
	}

	raw, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStorage, err.Error()).WithCause(err)
	}
	return parse(raw)
}

// LoadInline parses an inline workflow structure, as supplied by a dispatcher
// call carrying workflow_json instead of workflow_name.
func (l *Loader) LoadInline(doc map[string]any) (*schema.Workflow, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid inline workflow").WithCause(err)
	}
	return parse(raw)
}

func parse(raw []byte) (*schema.Workflow, error) {
	var wf schema.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "malformed workflow document: %s", err.Error()).WithCause(err)
	}
	return &wf, nil
}

// Summary describes one document found in the workflows directory.
type Summary struct {
	File        string
	Name        string
	Description string
	StepCount   int
	ReadError   bool
}

// List enumerates the *.json documents in the workflows directory, creating
// the directory when absent. Unreadable documents are listed with ReadError
// set rather than failing the whole listing.
func (l *Loader) List() ([]Summary, error) {
	exists, err := afero.DirExists(l.fs, l.dir)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStorage, err.Error())
	}
	if !exists {
		if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
			return nil, schema.NewError(schema.ErrCodeStorage, err.Error()).WithCause(err)
		}
		return nil, nil
	}

	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStorage, err.Error()).WithCause(err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")

		wf, loadErr := l.Load(entry.Name())
		if loadErr != nil {
			summaries = append(summaries, Summary{File: name, ReadError: true})
			continue
		}

		desc := wf.Description
		if desc == "" {
			desc = "No description"
		}
		if len(desc) > 80 {
			desc = desc[:80]
		}
		wfName := wf.Name
		if wfName == "" {
			wfName = entry.Name()
		}
		summaries = append(summaries, Summary{
			File:        name,
			Name:        wfName,
			Description: desc,
			StepCount:   len(wf.Steps),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].File < summaries[j].File })
	return summaries, nil
}
