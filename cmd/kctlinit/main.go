package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"kctlinit/pkg/kctl"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// sys is swapped out by tests.
var sys kctl.Sys = kctl.System

func newApp() *cli.App {
	return &cli.App{
		Name:    "kctlinit",
		Usage:   "reinitialize a kernel control group in a loop",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from `FILE` (default: kctlinit.yaml in . or ~/.kctlinit, if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "minimum log `LEVEL` (trace, debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "journal",
				Usage: "mirror log events to the SQLite journal",
			},
		},
		Commands: []*cli.Command{
			runCommand,
			resolveCommand,
			packetCommand,
			logsCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kctlinit: %v\n", err)
		os.Exit(exitStatus(err))
	}
}

// exitStatus maps an error returned by App.Run to a process exit code.
// Actions return cli.ExitCoder values; anything else comes from argument
// parsing before an action ran.
func exitStatus(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return kctl.ExitUsage
}
