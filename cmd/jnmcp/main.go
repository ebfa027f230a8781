package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/jobnimbus"
	"github.com/hailworks/jnmcp/internal/mcp"
	"github.com/hailworks/jnmcp/internal/tools"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"jobs": true, "contacts": true, "estimates": true, "invoices": true,
	"tasks": true, "activities": true, "analytics": true,
	"fetch": true, "info": true, "web": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
     _
    (_)_ __  _ __ ___   ___ _ __
    | | '_ \| '_ ' _ \ / __| '_ \
    | | | | | | | | | | (__| |_) |
   _/ |_| |_|_| |_| |_|\___| .__/
  |__/                     |_|

  JobNimbus MCP server

  Usage: jnmcp <command> [options]
         jnmcp --help

  MCP server mode requires piped input.`)
}

// buildStore opens the cache backend named by the config.
func buildStore(baseDir string, cfg *config.Config) (cache.Store, io.Closer, error) {
	if cfg.CacheBackend == "sqlite" {
		store, err := cache.OpenSQLite(baseDir, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return cache.NewMemoryStore(), nil, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before config load (no config needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".jnmcp")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		fmt.Fprintf(os.Stderr, "error: no API key configured (set JOBNIMBUS_API_KEY or api_key in %s)\n",
			filepath.Join(baseDir, "config.json"))
		os.Exit(1)
	}

	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		log.Printf("warning: disabled_tools names unknown tool %q", name)
	}
	for _, name := range mcp.ValidateDisabledEntities(cfg.DisabledEntities) {
		log.Printf("warning: disabled_entities names unknown entity %q", name)
	}

	store, closer, err := buildStore(baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open cache store: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	deps := tools.NewDeps(jobnimbus.NewClient(cfg), store, cfg)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(deps, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'jnmcp --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(deps, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
