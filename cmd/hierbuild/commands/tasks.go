package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/hierbuild/internal/build"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct {
	Unit string `short:"u" help:"Display path of the unit to inspect" default:":"`
}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	session, err := build.Prepare(context.Background(), m, build.SessionOptions{})
	if err != nil {
		return err
	}
	ops, err := session.Operations(t.Unit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "OPERATION\tDEFAULT\tACTIONS\tDEPENDS ON")
	for _, op := range ops {
		deps := make([]string, 0, len(op.Dependencies))
		for _, d := range op.Dependencies {
			deps = append(deps, d.String())
		}
		def := ""
		if op.Default {
			def = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", op.Ref.Name, def, op.PostActions, strings.Join(deps, ", "))
	}
	return tw.Flush()
}
