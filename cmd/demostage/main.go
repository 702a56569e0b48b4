package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/demostage/cmd/demostage/commands"
	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/lifecycle"
	"git.home.luguber.info/inful/demostage/internal/version"
)

func main() {
	lc := lifecycle.New()
	defer lc.Recover()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("demostage"),
		kong.Description("Stage, bundle and serve the SDK demo applications."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Lifecycle: lc}
	err := parser.Run(global, cli)

	code := derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err)
	lc.Exit(code)
}
