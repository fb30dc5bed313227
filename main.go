package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/mcncl/treedit/internal/config"
	"github.com/mcncl/treedit/internal/errors"
	"github.com/mcncl/treedit/internal/formatter"
	"github.com/mcncl/treedit/internal/logging"
	"github.com/mcncl/treedit/internal/project"
	"github.com/mcncl/treedit/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// Globals are the flags shared by every command
type Globals struct {
	ConfigFile string `help:"Path to config file. Defaults to the nearest .treedit.yml." name:"config" type:"path"`
	DB         string `help:"Path to the SQLite database holding projects." name:"db" type:"path"`
	Debug      bool   `help:"Enable debug logging." short:"d"`
	LogFormat  string `help:"Log format: text or json." name:"log-format"`

	stdout io.Writer
	stderr io.Writer
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Tree    TreeCmd    `cmd:"" help:"Print the tree built from a JSON file."`
	Project ProjectCmd `cmd:"" help:"Manage projects."`
	Configs ConfigCmd  `cmd:"" name:"config" help:"Manage the configurations of a project."`
	Edit    EditCmd    `cmd:"" help:"Edit a configuration in the terminal."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: treedit --help\n")
		stop()
		os.Exit(1)
	}
}

// run parses args and executes the selected command
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	cli.stdout = stdout
	cli.stderr = stderr

	parser, err := kong.New(&cli,
		kong.Name("treedit"),
		kong.Description("Edit JSON documents as trees and keep them as named configurations."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewInputError(err.Error(), nil)
	}
	return kctx.Run(&cli.Globals)
}

// load resolves the configuration and builds the logger
func (g *Globals) load() (*config.Config, *slog.Logger, error) {
	path := g.ConfigFile
	if path == "" {
		path = config.FindConfigFile()
	}

	cfg, err := config.LoadConfigWithCLI(path, config.CLIOverrides{
		DatabasePath: g.DB,
		LogFormat:    g.LogFormat,
		Debug:        g.Debug,
	})
	if err != nil {
		return nil, nil, errors.NewInputError(err.Error(), nil)
	}

	level := cfg.Log.Level
	if cfg.Dev.Debug {
		level = "debug"
	}
	logger, err := logging.New(g.stderr, logging.Options{Level: level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, errors.NewInputError(err.Error(), nil)
	}
	logger.Debug("configuration loaded", "file", path, "database", cfg.Database.Path)
	return cfg, logger, nil
}

// openService opens the project store and makes sure a project exists.
// The returned function closes the store.
func (g *Globals) openService(ctx context.Context) (*project.Service, *config.Config, func(), error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.Open(store.Config{
		Path:     cfg.Database.Path,
		PoolSize: cfg.Database.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}

	svc := project.NewService(st, logger)
	if _, err := svc.EnsureDefault(ctx, cfg.Projects.DefaultName); err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return svc, cfg, closeStore, nil
}

func renderOptions(cfg *config.Config) formatter.Options {
	return formatter.Options{
		Color:     cfg.Render.Color,
		ShowTypes: cfg.Render.ShowTypes,
		Indent:    cfg.Render.Indent,
	}
}
