package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/hierbuild/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite an existing manifest"`
	Output string `short:"o" name:"output" help:"Directory to write hierbuild.yaml into (default: the --manifest path)"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Manifest
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultFileName)
	}
	_, _ = fmt.Fprintf(g.out(), "Writing manifest to %s\n", path)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.out(), "initialized successfully")
	return nil
}
