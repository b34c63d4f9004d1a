package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"factotum/internal/storage"
)

// modelTokenLimits maps deployment names to context window sizes.
var modelTokenLimits = map[string]int{
	"gpt-5-chat":       200000,
	"gpt-5":            200000,
	"gpt-4o":           128000,
	"gpt-4-turbo":      128000,
	"gpt-4":            8192,
	"gpt-4-32k":        32768,
	"gpt-35-turbo":     16385,
	"gpt-35-turbo-16k": 16385,
}

const (
	defaultTokenLimit = 200000
	tokensPerAgent    = 500
	basePromptTokens  = 500
)

// ContextAnalyzerConfig carries the deployment settings the analyzer reads.
type ContextAnalyzerConfig struct {
	Deployment     string
	AssistantName  string
	Characteristic string
}

// ContextAnalyzer renders a visual breakdown of context window usage: system
// prompt, agent tools, memory, messages, and remaining free space. It reads
// everything it needs from the registry, storage, and the call parameters.
type ContextAnalyzer struct {
	cfg      ContextAnalyzerConfig
	registry *Registry
	store    storage.Manager
}

// NewContextAnalyzer assembles the context analyzer agent.
func NewContextAnalyzer(cfg ContextAnalyzerConfig, registry *Registry, store storage.Manager) *ContextAnalyzer {
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-5-chat"
	}
	return &ContextAnalyzer{cfg: cfg, registry: registry, store: store}
}

func (a *ContextAnalyzer) Name() string { return "contextanalyzer" }

func (a *ContextAnalyzer) Metadata() Metadata {
	return Metadata{
		Name:        a.Name(),
		Description: "Analyzes and displays current context/payload usage with a visual breakdown of token allocation. Shows system prompt, tools, memory, messages, and free space. Simply call this agent to see context usage - no parameters needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_guid": map[string]any{
					"type":        "string",
					"description": "User GUID for memory lookup (optional, auto-detected from request)",
				},
			},
			"required": []string{},
		},
	}
}

func (a *ContextAnalyzer) Perform(ctx context.Context, params map[string]any) (string, error) {
	history := sliceParam(params, "conversation_history")
	userGUID := stringParam(params, "user_guid")

	maxTokens := a.tokenLimit()
	systemTokens := a.systemPromptTokens()
	agentNames, toolTokens := a.agentInventory()
	memoryTokens := a.memoryTokens(userGUID)
	messages := analyzeMessages(history)

	return a.render(display{
		modelName:    a.cfg.Deployment,
		maxTokens:    maxTokens,
		systemTokens: systemTokens,
		toolTokens:   toolTokens,
		memoryTokens: memoryTokens,
		messages:     messages,
		agentNames:   agentNames,
	}), nil
}

func (a *ContextAnalyzer) tokenLimit() int {
	if limit, ok := modelTokenLimits[a.cfg.Deployment]; ok {
		return limit
	}
	lower := strings.ToLower(a.cfg.Deployment)
	for model, limit := range modelTokenLimits {
		if strings.Contains(lower, model) {
			return limit
		}
	}
	return defaultTokenLimit
}

func (a *ContextAnalyzer) systemPromptTokens() int {
	return basePromptTokens + len(a.cfg.AssistantName)/4 + len(a.cfg.Characteristic)/4
}

// agentInventory counts registered agents at roughly 500 tokens of function
// metadata each.
func (a *ContextAnalyzer) agentInventory() ([]string, int) {
	if a.registry == nil {
		return nil, 0
	}
	var names []string
	for _, agent := range a.registry.List() {
		names = append(names, agent.Name())
	}
	return names, len(names) * tokensPerAgent
}

// memoryTokens estimates the token footprint of the active memory file at
// four characters per token. Missing memory is simply zero.
func (a *ContextAnalyzer) memoryTokens(userGUID string) int {
	if a.store == nil {
		return 0
	}
	if userGUID != "" {
		a.store.SetMemoryContext(userGUID)
	}
	data, err := a.store.ReadJSON(a.store.MemoryFilePath())
	if err != nil || len(data) == 0 {
		return 0
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return 0
	}
	return max(1, len(raw)/4)
}

type messageStats struct {
	tokens         int
	userCount      int
	assistantCount int
	totalCount     int
}

func analyzeMessages(history []any) messageStats {
	var stats messageStats
	stats.totalCount = len(history)

	for _, entry := range history {
		msg, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		switch content := msg["content"].(type) {
		case string:
			stats.tokens += max(1, len(content)/4)
		case map[string]any, []any:
			if raw, err := json.Marshal(content); err == nil {
				stats.tokens += max(1, len(raw)/4)
			}
		}
		// role and separator overhead
		stats.tokens += 4

		switch msg["role"] {
		case "user":
			stats.userCount++
		case "assistant":
			stats.assistantCount++
		}
	}
	return stats
}

type display struct {
	modelName    string
	maxTokens    int
	systemTokens int
	toolTokens   int
	memoryTokens int
	messages     messageStats
	agentNames   []string
}

func (a *ContextAnalyzer) render(d display) string {
	used := d.systemTokens + d.toolTokens + d.memoryTokens + d.messages.tokens
	free := max(0, d.maxTokens-used)
	buffer := int(float64(d.maxTokens) * 0.15)
	effectiveFree := max(0, free-buffer)

	usagePct := 0.0
	if d.maxTokens > 0 {
		usagePct = float64(used) / float64(d.maxTokens) * 100
	}

	pct := func(n int) float64 {
		if d.maxTokens == 0 {
			return 0
		}
		return float64(n) / float64(d.maxTokens) * 100
	}

	grid := visualGrid([]float64{
		pct(d.systemTokens), pct(d.toolTokens), pct(d.memoryTokens),
		pct(d.messages.tokens), pct(effectiveFree), pct(buffer),
	})

	var b strings.Builder
	divider := "  ─────────────────────────────────────────────────────────\n"

	b.WriteString("\n  Context Usage\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "        %s    %s · %s/%s tokens (%.0f%%)\n",
		grid[0], d.modelName, fmtTokens(used), fmtTokens(d.maxTokens), usagePct)
	fmt.Fprintf(&b, "        %s\n", grid[1])
	fmt.Fprintf(&b, "        %s\n", grid[2])
	fmt.Fprintf(&b, "        %s\n\n", grid[3])

	fmt.Fprintf(&b, "        🟦 System prompt:    %7s tokens (%5s)\n", fmtTokens(d.systemTokens), fmtPct(pct(d.systemTokens)))
	fmt.Fprintf(&b, "        🟧 Agent tools:      %7s tokens (%5s)\n", fmtTokens(d.toolTokens), fmtPct(pct(d.toolTokens)))
	fmt.Fprintf(&b, "        🟩 Memory files:     %7s tokens (%5s)\n", fmtTokens(d.memoryTokens), fmtPct(pct(d.memoryTokens)))
	fmt.Fprintf(&b, "        🟨 Messages:         %7s tokens (%5s)\n", fmtTokens(d.messages.tokens), fmtPct(pct(d.messages.tokens)))
	fmt.Fprintf(&b, "        ⬜ Free space:       %7s (%5s)\n", fmtTokens(effectiveFree), fmtPct(pct(effectiveFree)))
	fmt.Fprintf(&b, "        ⬛ Buffer reserve:   %7s (%5s)\n\n", fmtTokens(buffer), fmtPct(pct(buffer)))

	b.WriteString("  Agent Tools · /agents\n")
	b.WriteString(divider)
	if len(d.agentNames) > 0 {
		shown := d.agentNames
		if len(shown) > 6 {
			shown = shown[:6]
		}
		for _, name := range shown {
			fmt.Fprintf(&b, "  ├─ %s: ~%d tokens\n", name, tokensPerAgent)
		}
		if len(d.agentNames) > 6 {
			fmt.Fprintf(&b, "  ├─ ... and %d more agents\n", len(d.agentNames)-6)
		}
		fmt.Fprintf(&b, "  └─ Total: %s tokens\n", fmtTokens(d.toolTokens))
	} else {
		b.WriteString("  └─ No agents loaded\n")
	}
	b.WriteString("\n")

	b.WriteString("  Memory · /memory\n")
	b.WriteString(divider)
	if d.memoryTokens > 0 {
		fmt.Fprintf(&b, "  └─ User memory: %s tokens\n", fmtTokens(d.memoryTokens))
	} else {
		b.WriteString("  └─ No memory loaded\n")
	}
	b.WriteString("\n")

	b.WriteString("  Messages\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "  ├─ 👤 User messages:      %d\n", d.messages.userCount)
	fmt.Fprintf(&b, "  ├─ 🤖 Assistant messages: %d\n", d.messages.assistantCount)
	fmt.Fprintf(&b, "  └─ Total: %d messages · %s tokens\n\n", d.messages.totalCount, fmtTokens(d.messages.tokens))

	if usagePct > 75 {
		b.WriteString(divider)
		if usagePct > 90 {
			b.WriteString("  ⚠️  Critical: Context nearly full! Consider clearing history.\n")
		} else {
			b.WriteString("  ⚠️  Warning: Context usage is high.\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// visualGrid lays the six usage categories out as four rows of ten blocks.
func visualGrid(percentages []float64) [4]string {
	const totalBlocks = 40
	colors := []string{"🟦", "🟧", "🟩", "🟨", "⬜", "⬛"}

	blocks := make([]int, len(percentages))
	for i, p := range percentages {
		blocks[i] = int(p / 100 * totalBlocks)
	}

	sum := func() int {
		total := 0
		for _, n := range blocks {
			total += n
		}
		return total
	}
	for sum() > totalBlocks {
		maxIdx := 0
		for i, n := range blocks {
			if n > blocks[maxIdx] {
				maxIdx = i
			}
		}
		blocks[maxIdx]--
	}

	var cells []string
	for i, count := range blocks {
		for j := 0; j < count; j++ {
			cells = append(cells, colors[i])
		}
	}

	// Pad rounding leftovers with free space, keeping the buffer band at the end.
	remaining := totalBlocks - len(cells)
	bufferPad := min(remaining, totalBlocks*15/100)
	for i := 0; i < remaining-bufferPad; i++ {
		cells = append(cells, "⬜")
	}
	for i := 0; i < bufferPad; i++ {
		cells = append(cells, "⬛")
	}

	var rows [4]string
	for i := 0; i < 4; i++ {
		rows[i] = strings.Join(cells[i*10:(i+1)*10], "")
	}
	return rows
}

func fmtTokens(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func fmtPct(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
