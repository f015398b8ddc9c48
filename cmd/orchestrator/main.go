// Command orchestrator is the CLI for the multi-agent orchestrator.
//
// Usage:
//
//	orchestrator validate --config config.yaml
//	orchestrator ask --config config.yaml "how do I configure the webhook?"
//	orchestrator serve --config config.yaml
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	orchestratormod "github.com/kadirpekel/orchestrator"
	"github.com/kadirpekel/orchestrator/pkg/config"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// CLI defines the command-line interface.
type CLI struct {
	Validate ValidateCmd `cmd:"" help:"Load and validate a configuration file."`
	Ask      AskCmd      `cmd:"" help:"Submit a single query and print the result."`
	Serve    ServeCmd    `cmd:"" help:"Run an interactive query loop with hot reload."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"orchestrator.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(orchestratormod.GetVersion())
	return nil
}

// ValidateCmd loads and validates a config file without wiring components.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	ctx := context.Background()
	sys, err := wire(ctx, cli.Config)
	if err != nil {
		return err
	}
	defer sys.plugins.Shutdown(ctx)
	fmt.Printf("config %q is valid\n", cli.Config)
	return nil
}

// AskCmd submits one query through the coordinator and exits.
type AskCmd struct {
	Session string `help:"Session id to attach this query to (new session if empty)."`
	Query   string `arg:"" help:"The query to submit."`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctx := context.Background()
	sys, err := wire(ctx, cli.Config)
	if err != nil {
		return err
	}
	defer sys.plugins.Shutdown(ctx)

	outcome, err := sys.coord.ProcessQuery(ctx, c.Session, c.Query)
	if err != nil && orcherr.KindOf(err) != orcherr.PartialFailure {
		return err
	}

	fmt.Println(outcome.FinalText)
	for _, cit := range outcome.Citations {
		fmt.Printf("  - %s\n", cit.Title)
	}
	if outcome.PartialFailure {
		fmt.Fprintln(os.Stderr, "warning: one or more agents failed; response is best-effort")
	}
	return nil
}

// ServeCmd loads the config with hot reload and runs queries read from
// stdin, one per line, until EOF or a shutdown signal. There is no
// HTTP/WebSocket framing here: the external API is the in-process
// pkg/orchestrator.Coordinator, and this loop is a thin stand-in for
// whatever transport an embedder wires on top of it.
type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	sys, err := wire(ctx, cli.Config)
	if err != nil {
		return err
	}
	defer sys.plugins.Shutdown(context.Background())

	reloadErr := sys.loader.WatchAndReload(ctx, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Warn("config reload failed, keeping previous config", "error", err)
			return
		}
		sys.agents.Update(cfg)
		if err := sys.registry.Refresh(); err != nil {
			slog.Warn("agent registry refresh after reload failed", "error", err)
		}
		slog.Info("config reloaded")
	})
	if reloadErr != nil {
		slog.Warn("config hot reload unavailable", "error", reloadErr)
	}

	slog.Info("ready", "config", cli.Config)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		query := scanner.Text()
		outcome, err := sys.coord.ProcessQuery(ctx, "", query)
		if err != nil && orcherr.KindOf(err) != orcherr.PartialFailure {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(outcome.FinalText)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("orchestrator"),
		kong.Description("Multi-agent orchestrator CLI."),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
