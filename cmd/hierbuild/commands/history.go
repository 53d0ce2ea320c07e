package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"10"`
	RunID string `name:"run" help:"Show the events of one run"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	if m.History.Disabled {
		return ferrors.ConfigError("run history is disabled in the manifest").Build()
	}
	store, err := history.NewSQLiteStore(m.Resolve(m.History.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	if h.RunID != "" {
		events, err := store.GetByRunID(ctx, h.RunID)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return ferrors.NotFoundError("run not found").WithContext("run_id", h.RunID).Build()
		}
		_, _ = fmt.Fprintln(tw, "TIME\tEVENT\tPAYLOAD")
		for _, e := range events {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Payload)
		}
		return tw.Flush()
	}

	p := history.NewProjection(store, h.Limit)
	if err := p.Rebuild(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tUNIT\tOPERATIONS\tEXECUTED\tDURATION")
	for _, s := range p.History() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%d\t%s\n",
			s.RunID, s.StartedAt.Format(time.RFC3339), s.Status, s.Unit, s.Operations, s.Executed, s.Duration)
	}
	return tw.Flush()
}
