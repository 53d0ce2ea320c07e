package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/hierbuild/cmd/hierbuild/commands"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	ctx := kong.Parse(cli,
		kong.Name("hierbuild"),
		kong.Description("Aggregate operations and artifact repositories across a hierarchy of builds"),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	global.Logger = slog.Default()

	if err := ctx.Run(global, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
