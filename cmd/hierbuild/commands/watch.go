package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/build"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Unit       string        `short:"u" help:"Display path of the target unit" default:":"`
	Debounce   time.Duration `help:"Quiet period before rerunning" default:"500ms"`
	Operations []string      `arg:"" optional:"" help:"Operations to execute on every change"`
}

func (wc *WatchCmd) Run(g *Global, root *CLI) error {
	if _, err := loadManifest(root); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := build.NewService()
	rerun := func(ctx context.Context) error {
		m, err := loadManifest(root)
		if err != nil {
			return err
		}
		result, err := svc.Run(ctx, build.Request{Manifest: m, Unit: wc.Unit, Operations: wc.Operations})
		printResult(g.out(), result)
		return err
	}

	dir := filepath.Dir(root.Manifest)
	files := []string{root.Manifest, filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")}
	w, err := watch.New(files, rerun, watch.WithDebounce(wc.Debounce))
	if err != nil {
		return err
	}
	w.Trigger()
	slog.Info("Watching manifest", logfields.Path(root.Manifest))
	return w.Run(ctx)
}
