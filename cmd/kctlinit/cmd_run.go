package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"kctlinit/pkg/driver"
	"kctlinit/pkg/kctl"
	"kctlinit/pkg/log"
	"kctlinit/pkg/protocol"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "bind the control and write group init packets until the channel fails",
	Description: `Resolves the control name, binds the requested unit and writes the
group initialization packet in a loop. The loop ends when a write fails or
comes back short (exit 4), on SIGINT/SIGTERM, or after --max-writes (exit 0).

Exit codes: 1 socket open, 2 name resolution, 3 bind, 4 write.`,
	Flags: []cli.Flag{
		serviceFlag,
		unitFlag,
		keySizeFlag,
		&cli.Uint64Flag{
			Name:  "max-writes",
			Usage: "stop cleanly after `N` writes (0 = never)",
		},
		&cli.Uint64Flag{
			Name:  "report-every",
			Usage: "log progress every `N` writes (0 = off)",
		},
	},
	Action: runCmd,
}

func runCmd(c *cli.Context) error {
	cfg, done, err := setup(c)
	if err != nil {
		return err
	}
	defer done()

	pkt, err := protocol.NewGroupInit(cfg.KeySize)
	if err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}
	data, err := pkt.MarshalBinary()
	if err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}

	ch, err := kctl.Dial(sys, cfg.Service, cfg.SCUnit())
	if err != nil {
		log.Error().Err(err).Str("service", cfg.Service).Uint64("unit", cfg.Unit).Msg("session setup failed")
		return exitErr(err)
	}
	defer ch.Close()

	ctx, stop := interruptContext(c.Context)
	defer stop()

	d := driver.New(ch, data, driver.Options{
		MaxWrites:   cfg.MaxWrites,
		ReportEvery: cfg.ReportEvery,
	})
	if _, err := d.Run(ctx); err != nil {
		return exitErr(err)
	}
	return nil
}

// interruptContext is cancelled by the first SIGINT or SIGTERM. The handler is
// removed as soon as that happens, so a second signal kills the process even
// if the write in flight never returns.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}
