package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/hierbuild/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Manifest string           `short:"f" help:"Hierarchy manifest path" default:"hierbuild.yaml" type:"path"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Execute operations at a unit (default: clean build)"`
	Tasks   TasksCmd   `cmd:"" help:"List the operations registered at a unit"`
	Tree    TreeCmd    `cmd:"" help:"Show the unit hierarchy with resolved metadata"`
	Init    InitCmd    `cmd:"" help:"Write a starter manifest"`
	Watch   WatchCmd   `cmd:"" help:"Rerun operations whenever the manifest changes"`
	History HistoryCmd `cmd:"" help:"Show recorded runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadManifest loads the manifest and applies its logging settings. The verbose
// flag wins over the manifest level.
func loadManifest(root *CLI) (*config.Manifest, error) {
	m, err := config.Load(root.Manifest)
	if err != nil {
		return nil, err
	}
	configureLogging(m.Logging, root.Verbose)
	return m, nil
}

func configureLogging(cfg config.LoggingConfig, verbose bool) {
	opts := &slog.HandlerOptions{Level: cfg.Level.SlogLevel()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
