package commands

import (
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/demostage/internal/config"
	"git.home.luguber.info/inful/demostage/internal/demos"
)

// ListCmd prints the resolved demos without staging anything.
type ListCmd struct {
	Demos []string `arg:"" optional:"" name:"demo" help:"Demo names to check (default: all)."`
}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeServe, l.Demos, nil)
	if err != nil {
		return err
	}
	list, err := demos.NewLocator(cfg.RootDir, cfg.ReservedEntry).List(cfg.DemoFilter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.Stdout(), 0, 4, 2, ' ', 0)
	for _, d := range list {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Path); err != nil {
			return err
		}
	}
	return tw.Flush()
}
