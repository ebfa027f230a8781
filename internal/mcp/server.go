package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/tools"
)

// KnownEntities lists the entity groups a tool name can belong to.
var KnownEntities = []string{
	"jobs", "contacts", "estimates", "invoices", "tasks", "activities",
	"analytics", "result", "system",
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"jobs_list": {
		def:     jobsListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.JobsList) },
	},
	"jobs_get": {
		def:     jobsGetTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.getHandler(tools.JobsGet) },
	},
	"jobs_search": {
		def:     jobsSearchTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.JobsSearch) },
	},
	"contacts_list": {
		def:     contactsListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.ContactsList) },
	},
	"contacts_get": {
		def:     contactsGetTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.getHandler(tools.ContactsGet) },
	},
	"estimates_list": {
		def:     estimatesListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.EstimatesList) },
	},
	"estimates_get": {
		def:     estimatesGetTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.getHandler(tools.EstimatesGet) },
	},
	"invoices_list": {
		def:     invoicesListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.InvoicesList) },
	},
	"invoices_get": {
		def:     invoicesGetTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.getHandler(tools.InvoicesGet) },
	},
	"tasks_list": {
		def:     tasksListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.TasksList) },
	},
	"tasks_get": {
		def:     tasksGetTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.getHandler(tools.TasksGet) },
	},
	"activities_list": {
		def:     activitiesListTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.listHandler(tools.ActivitiesList) },
	},
	"analytics_revenue": {
		def:     analyticsRevenueTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.analyticsHandler(tools.AnalyticsRevenue) },
	},
	"analytics_pipeline": {
		def:     analyticsPipelineTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.analyticsHandler(tools.AnalyticsPipeline) },
	},
	"analytics_conversion": {
		def:     analyticsConversionTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.analyticsHandler(tools.AnalyticsConversion) },
	},
	"result_fetch": {
		def:     resultFetchTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResultFetch },
	},
	"system_info": {
		def:     systemInfoTool,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSystemInfo },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledEntities returns a list of unknown entity names from the given list.
func ValidateDisabledEntities(names []string) []string {
	known := make(map[string]bool, len(KnownEntities))
	for _, e := range KnownEntities {
		known[e] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetEntityForTool extracts the entity name from a tool name.
// Tool names follow the pattern "entity_action" (e.g., "jobs_list" → "jobs").
func GetEntityForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandEntitiesToTools returns all tool names belonging to the given entities.
func ExpandEntitiesToTools(entities []string) []string {
	if len(entities) == 0 {
		return nil
	}

	entitySet := make(map[string]bool, len(entities))
	for _, e := range entities {
		entitySet[e] = true
	}

	names := make([]string, 0)
	for name := range toolRegistry {
		if entitySet[GetEntityForTool(name)] {
			names = append(names, name)
		}
	}
	return names
}

// NewServer creates a new MCP server with JobNimbus tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledEntities
// are excluded from registration.
func NewServer(deps *tools.Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jnmcp",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(deps, version)

	// Build set of disabled tools: first expand entities, then add
	// individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandEntitiesToTools(cfg.DisabledEntities) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps *tools.Deps, cfg *config.Config, version string) error {
	s := NewServer(deps, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
