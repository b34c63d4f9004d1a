package storage

// Manager defines the local storage contract used by agents for scratch
// files, shared memory, and per-context user memory. All paths are relative
// to the storage root. Implementations must be safe for concurrent use.
type Manager interface {
	// SetMemoryContext switches the active user-memory context. An invalid
	// GUID falls back to the shared context and returns the path actually in
	// effect.
	SetMemoryContext(guid string) string
	// MemoryFilePath returns the memory file path for the active context.
	MemoryFilePath() string

	ReadJSON(relPath string) (map[string]any, error)
	WriteJSON(relPath string, data map[string]any) error
	ReadFile(relPath string) (string, error)
	WriteFile(relPath string, content string) error
	ListFiles(relDir string) ([]string, error)
	DeleteFile(relPath string) error
	FileExists(relPath string) bool
	EnsureDirectory(relDir string) error

	// Root returns the absolute storage root directory.
	Root() string
}
