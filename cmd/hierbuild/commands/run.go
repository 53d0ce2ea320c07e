package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/build"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Unit       string   `short:"u" help:"Display path of the target unit (':' is the root)" default:":"`
	Operations []string `arg:"" optional:"" help:"Operations to execute in order"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := build.NewService().Run(ctx, build.Request{Manifest: m, Unit: r.Unit, Operations: r.Operations})
	printResult(g.out(), result)
	return err
}

func printResult(w io.Writer, result *build.Result) {
	if result == nil {
		return
	}
	if len(result.Requested) > 0 {
		_, _ = fmt.Fprintf(w, "%s %s at %s\n", strings.ToUpper(string(result.Status)), strings.Join(result.Requested, " "), result.Unit)
	} else {
		_, _ = fmt.Fprintf(w, "%s\n", strings.ToUpper(string(result.Status)))
	}
	for _, op := range result.Executed {
		_, _ = fmt.Fprintf(w, "  %s\n", op)
	}
	for _, op := range result.Failed {
		_, _ = fmt.Fprintf(w, "FAILED %s\n", op)
	}
	_, _ = fmt.Fprintf(w, "run %s finished in %s\n", result.RunID, result.Duration.Round(time.Millisecond))
}
