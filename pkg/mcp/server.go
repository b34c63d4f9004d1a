package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"factotum/internal/agents"
)

// AgentServerDeps holds the dependencies for creating an AgentServer.
type AgentServerDeps struct {
	Registry *agents.Registry
	Logger   *slog.Logger
}

// AgentServer exposes every registered agent as an MCP tool, plus a listing
// tool that enumerates the agents and their parameter schemas.
type AgentServer struct {
	registry  *agents.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewAgentServer creates an AgentServer with one tool per registered agent.
func NewAgentServer(deps AgentServerDeps) *AgentServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &AgentServer{
		registry: deps.Registry,
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"factotum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Factotum is an assistant runtime exposing its agents as tools. Use factotum.workflowrunner to run JSON automation playbooks, factotum.booster to discover and configure Azure OpenAI models, factotum.contextanalyzer to inspect context window usage, and factotum.agents to list the available agents."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *AgentServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *AgentServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools builds the tool list: one per agent plus the listing tool.
func (s *AgentServer) tools() []server.ServerTool {
	list := []server.ServerTool{
		{Tool: agentsTool(), Handler: s.handleAgents},
	}
	for _, agent := range s.registry.List() {
		list = append(list, server.ServerTool{
			Tool:    agentTool(agent),
			Handler: s.agentHandler(agent.Name()),
		})
	}
	return list
}

// agentTool converts an agent's metadata into an MCP tool definition, reusing
// the agent's parameter JSON Schema directly.
func agentTool(agent agents.Agent) mcp.Tool {
	meta := agent.Metadata()
	name := "factotum." + meta.Name

	raw, err := json.Marshal(meta.Parameters)
	if err != nil {
		return mcp.NewTool(name, mcp.WithDescription(meta.Description))
	}
	return mcp.NewToolWithRawSchema(name, meta.Description, raw)
}

func agentsTool() mcp.Tool {
	return mcp.NewTool("factotum.agents",
		mcp.WithDescription("List the available agents with their descriptions and parameter schemas"),
	)
}

// agentHandler returns the tool handler dispatching to the named agent.
func (s *AgentServer) agentHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := req.GetArguments()
		if params == nil {
			params = map[string]any{}
		}

		transcript, err := s.registry.Dispatch(ctx, name, params)
		if err != nil {
			s.logger.ErrorContext(ctx, "agent dispatch failed",
				slog.String("agent", name), slog.String("error", err.Error()))
			return mcp.NewToolResultError(fmt.Sprintf("agent %s failed: %v", name, err)), nil
		}
		return mcp.NewToolResultText(transcript), nil
	}
}

// handleAgents lists the registered agents.
func (s *AgentServer) handleAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	}

	var listing []entry
	for _, agent := range s.registry.List() {
		meta := agent.Metadata()
		listing = append(listing, entry{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  meta.Parameters,
		})
	}

	raw, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal agent listing: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
