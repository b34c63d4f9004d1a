package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/internal/storage"
)

type stubAgent struct{ name string }

func (s *stubAgent) Name() string { return s.name }
func (s *stubAgent) Metadata() Metadata {
	return Metadata{Name: s.name, Description: "stub"}
}
func (s *stubAgent) Perform(context.Context, map[string]any) (string, error) {
	return "ok", nil
}

func analyzerFixture(t *testing.T) (*ContextAnalyzer, storage.Manager) {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubAgent{name: "alpha"}))
	require.NoError(t, registry.Register(&stubAgent{name: "beta"}))

	store, err := storage.NewLocalManager(afero.NewMemMapFs(), ".local_storage")
	require.NoError(t, err)

	a := NewContextAnalyzer(ContextAnalyzerConfig{
		Deployment:     "gpt-5-chat",
		AssistantName:  "Factotum",
		Characteristic: "a pragmatic assistant",
	}, registry, store)
	return a, store
}

func TestContextAnalyzer_Sections(t *testing.T) {
	a, _ := analyzerFixture(t)

	out, err := a.Perform(context.Background(), map[string]any{
		"conversation_history": []any{
			map[string]any{"role": "user", "content": "Hello, how are you?"},
			map[string]any{"role": "assistant", "content": "Doing well!"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Context Usage")
	assert.Contains(t, out, "gpt-5-chat")
	assert.Contains(t, out, "🟦 System prompt:")
	assert.Contains(t, out, "Agent Tools · /agents")
	assert.Contains(t, out, "├─ alpha: ~500 tokens")
	assert.Contains(t, out, "├─ beta: ~500 tokens")
	assert.Contains(t, out, "Memory · /memory")
	assert.Contains(t, out, "└─ No memory loaded")
	assert.Contains(t, out, "👤 User messages:      1")
	assert.Contains(t, out, "🤖 Assistant messages: 1")
	assert.Contains(t, out, "Total: 2 messages")
}

func TestContextAnalyzer_GridShape(t *testing.T) {
	a, _ := analyzerFixture(t)

	out, err := a.Perform(context.Background(), nil)
	require.NoError(t, err)

	// Four grid rows of ten blocks each.
	blockCount := 0
	for _, block := range []string{"🟦", "🟧", "🟩", "🟨", "⬜", "⬛"} {
		blockCount += strings.Count(out, block)
	}
	// The breakdown legend repeats each block once.
	assert.Equal(t, 46, blockCount)
}

func TestContextAnalyzer_MemoryCounted(t *testing.T) {
	a, store := analyzerFixture(t)
	require.NoError(t, store.WriteJSON(store.MemoryFilePath(), map[string]any{
		"note": strings.Repeat("m", 400),
	}))

	out, err := a.Perform(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "└─ User memory:")
	assert.NotContains(t, out, "No memory loaded")
}

func TestContextAnalyzer_WarnsWhenNearlyFull(t *testing.T) {
	registry := NewRegistry()
	store, err := storage.NewLocalManager(afero.NewMemMapFs(), ".local_storage")
	require.NoError(t, err)

	// gpt-4 has an 8192-token window; a long history pushes usage past 90%.
	a := NewContextAnalyzer(ContextAnalyzerConfig{Deployment: "gpt-4"}, registry, store)

	var history []any
	for i := 0; i < 40; i++ {
		history = append(history, map[string]any{"role": "user", "content": strings.Repeat("w", 800)})
	}

	out, err := a.Perform(context.Background(), map[string]any{"conversation_history": history})
	require.NoError(t, err)
	assert.Contains(t, out, "⚠️  Critical: Context nearly full!")
}

func TestContextAnalyzer_UnknownModelUsesDefaultLimit(t *testing.T) {
	registry := NewRegistry()
	store, err := storage.NewLocalManager(afero.NewMemMapFs(), ".local_storage")
	require.NoError(t, err)

	a := NewContextAnalyzer(ContextAnalyzerConfig{Deployment: "mystery-model"}, registry, store)
	assert.Equal(t, defaultTokenLimit, a.tokenLimit())

	// Deployment names embedding a known model inherit its limit.
	a = NewContextAnalyzer(ContextAnalyzerConfig{Deployment: "my-gpt-4o-deployment"}, registry, store)
	assert.Equal(t, 128000, a.tokenLimit())
}
