package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/response"
	"github.com/hailworks/jnmcp/internal/tools"
	"github.com/hailworks/jnmcp/internal/web"
)

type listOp func(context.Context, *tools.Deps, tools.ListInput) (response.Envelope, error)
type getOp func(context.Context, *tools.Deps, tools.GetInput) (response.Envelope, error)
type analyticsOp func(context.Context, *tools.Deps, tools.AnalyticsInput) (response.Envelope, error)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *tools.Deps, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "jnmcp",
		Usage:   "JobNimbus MCP server and query CLI",
		Version: Version,
		Commands: []*cli.Command{
			entityCmd(deps, "jobs", tools.JobsList, tools.JobsGet),
			entityCmd(deps, "contacts", tools.ContactsList, tools.ContactsGet),
			entityCmd(deps, "estimates", tools.EstimatesList, tools.EstimatesGet),
			entityCmd(deps, "invoices", tools.InvoicesList, tools.InvoicesGet),
			entityCmd(deps, "tasks", tools.TasksList, tools.TasksGet),
			activitiesCmd(deps),
			analyticsCmd(deps),
			fetchCmd(deps),
			infoCmd(deps),
			webCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// verbosityFlags are the shared projection flags.
func verbosityFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "verbosity", Usage: "Detail tier: summary|compact|detailed|raw"},
		&cli.StringFlag{Name: "fields", Usage: "Comma-separated field paths, e.g. jnid,display_name,tags[].name"},
	}
}

// listFlags are the shared list/filter/paging flags.
func listFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{Name: "size", Aliases: []string{"s"}, Value: tools.DefaultListSize, Usage: "Page size (max 100)"},
		&cli.IntFlag{Name: "from", Aliases: []string{"f"}, Usage: "Page offset"},
		&cli.StringFlag{Name: "status", Usage: "Exact status name, case-insensitive"},
		&cli.StringFlag{Name: "date-from", Usage: "Earliest creation date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "date-to", Usage: "Latest creation date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "sort-by", Usage: "Field to sort by"},
		&cli.BoolFlag{Name: "sort-desc", Usage: "Sort descending"},
	}
	return append(flags, verbosityFlags()...)
}

func listInputFromFlags(c *cli.Context) tools.ListInput {
	return tools.ListInput{
		Size:      c.Int("size"),
		From:      c.Int("from"),
		Status:    c.String("status"),
		DateFrom:  c.String("date-from"),
		DateTo:    c.String("date-to"),
		SortBy:    c.String("sort-by"),
		SortDesc:  c.Bool("sort-desc"),
		Verbosity: c.String("verbosity"),
		Fields:    c.String("fields"),
	}
}

// entityCmd creates a command with list/get subcommands for one entity.
func entityCmd(deps *tools.Deps, entity string, list listOp, get getOp) *cli.Command {
	cmd := &cli.Command{
		Name:  entity,
		Usage: fmt.Sprintf("Query %s", entity),
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: fmt.Sprintf("List %s with optional filters", entity),
				Flags: listFlags(),
				Action: func(c *cli.Context) error {
					env, err := list(c.Context, deps, listInputFromFlags(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(env)
				},
			},
			{
				Name:      "get",
				Usage:     fmt.Sprintf("Fetch one %s record by jnid", entity),
				ArgsUsage: "<jnid>",
				Flags:     verbosityFlags(),
				Action: func(c *cli.Context) error {
					env, err := get(c.Context, deps, tools.GetInput{
						JNID:      c.Args().First(),
						Verbosity: c.String("verbosity"),
						Fields:    c.String("fields"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(env)
				},
			},
		},
	}

	if entity == "jobs" {
		cmd.Subcommands = append(cmd.Subcommands, &cli.Command{
			Name:      "search",
			Usage:     "Free-text search over jobs",
			ArgsUsage: "<query>",
			Flags:     listFlags(),
			Action: func(c *cli.Context) error {
				input := listInputFromFlags(c)
				input.Query = c.Args().First()
				env, err := tools.JobsSearch(c.Context, deps, input)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(env)
			},
		})
	}

	return cmd
}

// activitiesCmd creates the activities command (list only).
func activitiesCmd(deps *tools.Deps) *cli.Command {
	return &cli.Command{
		Name:  "activities",
		Usage: "Query activities",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List activities with optional filters",
				Flags: listFlags(),
				Action: func(c *cli.Context) error {
					env, err := tools.ActivitiesList(c.Context, deps, listInputFromFlags(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(env)
				},
			},
		},
	}
}

// analyticsCmd creates the analytics command with one subcommand per report.
func analyticsCmd(deps *tools.Deps) *cli.Command {
	report := func(name, usage string, op analyticsOp) *cli.Command {
		flags := []cli.Flag{
			&cli.StringFlag{Name: "date-from", Usage: "Earliest creation date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "date-to", Usage: "Latest creation date (YYYY-MM-DD)"},
		}
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: append(flags, verbosityFlags()...),
			Action: func(c *cli.Context) error {
				env, err := op(c.Context, deps, tools.AnalyticsInput{
					DateFrom:  c.String("date-from"),
					DateTo:    c.String("date-to"),
					Verbosity: c.String("verbosity"),
					Fields:    c.String("fields"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(env)
			},
		}
	}

	return &cli.Command{
		Name:  "analytics",
		Usage: "Derived reports over JobNimbus data",
		Subcommands: []*cli.Command{
			report("revenue", "Invoice revenue by status", tools.AnalyticsRevenue),
			report("pipeline", "Job counts and estimate value per status", tools.AnalyticsPipeline),
			report("conversion", "Estimate-to-invoice conversion", tools.AnalyticsConversion),
		},
	}
}

// fetchCmd retrieves a stored oversized result by handle.
func fetchCmd(deps *tools.Deps) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Retrieve a stored result by its handle",
		ArgsUsage: "<result_handle>",
		Flags:     verbosityFlags(),
		Action: func(c *cli.Context) error {
			env, err := tools.ResultFetch(c.Context, deps, tools.ResultFetchInput{
				Handle:    c.Args().First(),
				Verbosity: c.String("verbosity"),
				Fields:    c.String("fields"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env)
		},
	}
}

// infoCmd prints server configuration.
func infoCmd(deps *tools.Deps) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show server version and governance defaults",
		Action: func(c *cli.Context) error {
			info, err := tools.SystemInfo(c.Context, deps, Version)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(info)
		},
	}
}

// webCmd starts the HTTP debug server.
func webCmd(deps *tools.Deps) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Run the JSON debug server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8735, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(deps, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if jnErr, ok := err.(*errors.JNError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", jnErr.Code, jnErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
