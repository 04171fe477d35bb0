// Nuki Control - local access layer for a Nuki smart lock bridge.
//
// nukicontrol talks to the bridge's HTTP API on the LAN, normalises its
// loosely shaped answers and exposes the lock over a REST API and,
// optionally, MQTT. The bridge token stays inside this process.
//
// Commands:
//
//	nukicontrol [serve]        run the API (and MQTT bridge when enabled)
//	nukicontrol state [--json] read the lock once and print it
//	nukicontrol action <name>  dispatch one command (lock, unlock, unlatch, lock-and-go)
//	nukicontrol token          mint an API bearer token
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	_ "time/tzdata"

	_ "github.com/nerrad567/nuki-control/migrations"

	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// globalOptions are accepted before any command.
type globalOptions struct {
	Config string `short:"c" long:"config" env:"NUKICONTROL_CONFIG" description:"Path to the configuration file" default:"configs/config.yaml"`
}

// app carries what every command needs.
type app struct {
	ctx  context.Context
	opts globalOptions
	out  io.Writer
}

func main() {
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command. With no command it
// serves.
func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{ctx: ctx, out: out}

	parser := newParser(a)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	if parser.Active == nil {
		return (&serveCommand{app: a}).Execute(nil)
	}
	return nil
}

// newParser builds the command line parser. Commands run from Execute
// during parsing.
func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true

	//nolint:errcheck // static command table; AddCommand only fails on nil data
	parser.AddCommand("serve", "Run the service",
		"Serve the REST API and, when enabled, the MQTT bridge until interrupted.",
		&serveCommand{app: a})
	//nolint:errcheck // static command table
	parser.AddCommand("state", "Read the lock state once",
		"Query the bridge once and print the summary, or the full report with --json.",
		&stateCommand{app: a})
	//nolint:errcheck // static command table
	parser.AddCommand("action", "Dispatch one command",
		"Send lock, unlock, unlatch or lock-and-go to the lock and print the outcome.",
		&actionCommand{app: a})
	//nolint:errcheck // static command table
	parser.AddCommand("token", "Mint an API bearer token",
		"Sign an access token with security.jwt.secret for use against the REST API.",
		&tokenCommand{app: a})

	return parser
}

// loadConfig reads the configuration selected by --config or
// NUKICONTROL_CONFIG.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.opts.Config
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
