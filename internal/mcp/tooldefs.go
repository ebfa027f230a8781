package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Shared option sets. Every query tool accepts verbosity and fields so a
// client can trade detail for size; list tools add paging and filters.

func verbosityOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("verbosity",
			mcp.Description("Response detail tier: summary, compact (default), detailed, or raw"),
			mcp.Enum("summary", "compact", "detailed", "raw"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated field paths to return instead of the tier default, e.g. jnid,display_name,primary.name,tags[].name"),
		),
	}
}

func listOptions(entity string) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("List %s with optional filters. Results are paged and size-governed; oversized results return a result_handle for result_fetch.", entity)),
		mcp.WithNumber("size",
			mcp.Description("Page size, 1-100 (default 20)"),
		),
		mcp.WithNumber("from",
			mcp.Description("Page offset into the filtered result set (default 0)"),
		),
		mcp.WithString("status",
			mcp.Description("Exact status name to match, case-insensitive"),
		),
		mcp.WithString("date_from",
			mcp.Description("Earliest creation date, YYYY-MM-DD inclusive"),
		),
		mcp.WithString("date_to",
			mcp.Description("Latest creation date, YYYY-MM-DD inclusive"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Field name to sort by; omit to keep upstream order"),
		),
		mcp.WithBoolean("sort_desc",
			mcp.Description("Sort descending (default ascending)"),
		),
	}
	return append(opts, verbosityOptions()...)
}

func getOptions(entity string) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Fetch a single %s record by jnid.", entity)),
		mcp.WithString("jnid",
			mcp.Required(),
			mcp.Description("Record identifier"),
		),
	}
	return append(opts, verbosityOptions()...)
}

func analyticsOptions(desc string) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithString("date_from",
			mcp.Description("Earliest creation date, YYYY-MM-DD inclusive"),
		),
		mcp.WithString("date_to",
			mcp.Description("Latest creation date, YYYY-MM-DD inclusive"),
		),
	}
	return append(opts, verbosityOptions()...)
}

var (
	jobsListTool = mcp.NewTool("jobs_list", listOptions("jobs")...)
	jobsGetTool  = mcp.NewTool("jobs_get", getOptions("job")...)

	jobsSearchTool = mcp.NewTool("jobs_search", append([]mcp.ToolOption{
		mcp.WithDescription("Free-text search over jobs by name, number, address, and description."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for, case-insensitive"),
		),
		mcp.WithNumber("size", mcp.Description("Page size, 1-100 (default 20)")),
		mcp.WithNumber("from", mcp.Description("Page offset (default 0)")),
	}, verbosityOptions()...)...)

	contactsListTool = mcp.NewTool("contacts_list", listOptions("contacts")...)
	contactsGetTool  = mcp.NewTool("contacts_get", getOptions("contact")...)

	estimatesListTool = mcp.NewTool("estimates_list", listOptions("estimates")...)
	estimatesGetTool  = mcp.NewTool("estimates_get", getOptions("estimate")...)

	invoicesListTool = mcp.NewTool("invoices_list", listOptions("invoices")...)
	invoicesGetTool  = mcp.NewTool("invoices_get", getOptions("invoice")...)

	tasksListTool = mcp.NewTool("tasks_list", listOptions("tasks")...)
	tasksGetTool  = mcp.NewTool("tasks_get", getOptions("task")...)

	activitiesListTool = mcp.NewTool("activities_list", listOptions("activities")...)

	analyticsRevenueTool = mcp.NewTool("analytics_revenue",
		analyticsOptions("Invoice revenue totals grouped by status over a date range.")...)
	analyticsPipelineTool = mcp.NewTool("analytics_pipeline",
		analyticsOptions("Job counts and estimate value per pipeline status.")...)
	analyticsConversionTool = mcp.NewTool("analytics_conversion",
		analyticsOptions("Estimate-to-invoice conversion ratio and approved-estimate percentiles.")...)

	resultFetchTool = mcp.NewTool("result_fetch", append([]mcp.ToolOption{
		mcp.WithDescription("Retrieve a stored oversized result by its result_handle, optionally narrowing fields. Handles expire; an expired handle returns status=expired and the original query must be re-run."),
		mcp.WithString("result_handle",
			mcp.Required(),
			mcp.Description("Handle from a partial envelope, e.g. h_01J..."),
		),
	}, verbosityOptions()...)...)

	systemInfoTool = mcp.NewTool("system_info",
		mcp.WithDescription("Server version and response-governance defaults: inline ceiling, verbosity tier, cache and handle TTLs."),
	)
)
