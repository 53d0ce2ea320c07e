package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"git.home.luguber.info/inful/hierbuild/internal/build"
	"git.home.luguber.info/inful/hierbuild/internal/publish"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// TreeCmd implements the 'tree' command. Metadata is shown after inheritance.
type TreeCmd struct{}

func (t *TreeCmd) Run(g *Global, root *CLI) error {
	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	session, err := build.Prepare(context.Background(), m, build.SessionOptions{})
	if err != nil {
		return err
	}
	printTree(g.out(), session.Hierarchy.Root, 0)
	return nil
}

func printTree(w io.Writer, u *unit.Unit, depth int) {
	line := fmt.Sprintf("%s%s [%s] %s:%s", strings.Repeat("  ", depth), u.DisplayPath(), u.Kind(), u.Group(), u.Version())
	if u.Mode() == unit.ModeIncludedBuild {
		line += " (included build)"
	}
	if p, ok := u.Publishing().(*publish.Maven); ok {
		for _, r := range p.Repositories() {
			line += fmt.Sprintf(" -> %s=%s", r.Name, r.URL)
		}
	}
	_, _ = fmt.Fprintln(w, line)
	for _, c := range u.Children() {
		printTree(w, c, depth+1)
	}
}
