package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"kctlinit/pkg/kctl"
	"kctlinit/pkg/log"
)

var resolveCommand = &cli.Command{
	Name:  "resolve",
	Usage: "look up a kernel control identifier, optionally test-binding a unit",
	Flags: []cli.Flag{
		serviceFlag,
		unitFlag,
		&cli.BoolFlag{
			Name:  "bind",
			Usage: "also connect to the unit, then close without writing",
		},
	},
	Action: resolveCmd,
}

func resolveCmd(c *cli.Context) error {
	cfg, done, err := setup(c)
	if err != nil {
		return err
	}
	defer done()

	ch, err := kctl.Open(sys)
	if err != nil {
		return exitErr(err)
	}
	defer ch.Close()

	ident, err := ch.Resolve(cfg.Service)
	if err != nil {
		return exitErr(err)
	}

	rows := pterm.TableData{
		{"field", "value"},
		{"name", ident.Name},
		{"id", fmt.Sprint(ident.ID)},
	}
	if len(ident.Name) > kctl.MaxNameLen {
		rows = append(rows, []string{"note", fmt.Sprintf("name truncated to %d bytes for lookup", kctl.MaxNameLen)})
	}

	if c.Bool("bind") {
		ep, err := ch.Bind(ident, cfg.SCUnit())
		if err != nil {
			return exitErr(err)
		}
		rec, _ := ep.MarshalBinary()
		rows = append(rows,
			[]string{"unit", unitLabel(ep.Unit)},
			[]string{"sockaddr_ctl", hex.EncodeToString(rec)},
		)
		log.Debug().Stringer("endpoint", ep).Msg("test bind succeeded")
	}

	return render(c.App.Writer, pterm.DefaultTable.WithHasHeader().WithData(rows))
}

func unitLabel(unit uint32) string {
	if unit == kctl.AutoUnit {
		return "0 (kernel assigned)"
	}
	return fmt.Sprint(unit)
}
