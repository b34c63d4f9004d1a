package storage

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"factotum/pkg/schema"
)

const (
	// DefaultRoot is the storage directory created next to the process when
	// no explicit root is configured.
	DefaultRoot = ".local_storage"

	sharedMemoryFile = "shared_memories/memory.json"
	userMemoryFile   = "user_memory.json"
)

// guidPattern matches canonical GUIDs, the only accepted memory context IDs.
var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// LocalManager is a filesystem-backed Manager. Every operation is confined to
// the root directory; relative paths that escape it are rejected.
type LocalManager struct {
	fs   afero.Fs
	root string

	mu         sync.RWMutex
	memoryPath string
}

// NewLocalManager creates a LocalManager rooted at root, creating the
// directory when missing. A nil fs uses the OS filesystem.
func NewLocalManager(fs afero.Fs, root string) (*LocalManager, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if root == "" {
		root = DefaultRoot
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, schema.NewError(schema.ErrCodeStorage, "cannot create storage root").WithCause(err)
	}
	return &LocalManager{fs: fs, root: root, memoryPath: sharedMemoryFile}, nil
}

func (m *LocalManager) Root() string { return m.root }

// SetMemoryContext switches user memory to memory/<guid>/user_memory.json.
// Anything that is not a canonical GUID keeps the shared memory file active.
func (m *LocalManager) SetMemoryContext(guid string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if guidPattern.MatchString(guid) {
		m.memoryPath = filepath.Join("memory", strings.ToLower(guid), userMemoryFile)
	} else {
		m.memoryPath = sharedMemoryFile
	}
	return m.memoryPath
}

func (m *LocalManager) MemoryFilePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.memoryPath
}

// resolve joins relPath under the root, rejecting traversal outside it.
func (m *LocalManager) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", schema.NewErrorf(schema.ErrCodeValidation, "path escapes storage root: %s", relPath)
	}
	return filepath.Join(m.root, cleaned), nil
}

func (m *LocalManager) ReadJSON(relPath string) (map[string]any, error) {
	content, err := m.ReadFile(relPath)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStorage, "malformed JSON in %s", relPath).WithCause(err)
	}
	return data, nil
}

func (m *LocalManager) WriteJSON(relPath string, data map[string]any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return schema.NewError(schema.ErrCodeStorage, "cannot serialize JSON").WithCause(err)
	}
	return m.WriteFile(relPath, string(raw))
}

func (m *LocalManager) ReadFile(relPath string) (string, error) {
	path, err := m.resolve(relPath)
	if err != nil {
		return "", err
	}
	raw, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeNotFound, "file not found: %s", relPath).WithCause(err)
	}
	return string(raw), nil
}

func (m *LocalManager) WriteFile(relPath string, content string) error {
	path, err := m.resolve(relPath)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return schema.NewError(schema.ErrCodeStorage, "cannot create parent directory").WithCause(err)
	}
	if err := afero.WriteFile(m.fs, path, []byte(content), 0o644); err != nil {
		return schema.NewErrorf(schema.ErrCodeStorage, "cannot write %s", relPath).WithCause(err)
	}
	return nil
}

func (m *LocalManager) ListFiles(relDir string) ([]string, error) {
	path, err := m.resolve(relDir)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(m.fs, path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "directory not found: %s", relDir).WithCause(err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *LocalManager) DeleteFile(relPath string) error {
	path, err := m.resolve(relPath)
	if err != nil {
		return err
	}
	if err := m.fs.Remove(path); err != nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "file not found: %s", relPath).WithCause(err)
	}
	return nil
}

func (m *LocalManager) FileExists(relPath string) bool {
	path, err := m.resolve(relPath)
	if err != nil {
		return false
	}
	exists, err := afero.Exists(m.fs, path)
	return err == nil && exists
}

func (m *LocalManager) EnsureDirectory(relDir string) error {
	path, err := m.resolve(relDir)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(path, 0o755); err != nil {
		return schema.NewError(schema.ErrCodeStorage, "cannot create directory").WithCause(err)
	}
	return nil
}
