// Package cli implements the ipkey command-line interface.
//
// This package provides the plugin entry point (run) together with one-shot
// helpers for fetching, copying, and rendering the public address, an
// interactive key simulator, and packaging support. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - run: Connect to the stream-deck host and drive the key
//   - fetch: Resolve the public address once and print it
//   - copy: Resolve the public address and place it on the clipboard
//   - render: Produce the key image for an address as SVG
//   - simulate: Interactive terminal key for development without a host
//   - manifest: Emit the host packaging manifest
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The shared
// logger lives on the CLI struct and is handed to the driver and server
// explicitly.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "ipkey"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "ipkey shows and copies your public IP from a stream-deck key",
		Long:         `ipkey is a stream-deck plugin that renders the machine's public IPv4 address onto a key and copies it to the clipboard when the key is pressed.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.runCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.copyCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.manifestCommand())
	root.AddCommand(c.completionCommand())

	return root
}
