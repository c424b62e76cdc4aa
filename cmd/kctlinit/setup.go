package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"kctlinit/pkg/appdir"
	"kctlinit/pkg/config"
	"kctlinit/pkg/kctl"
	"kctlinit/pkg/log"
)

var (
	serviceFlag = &cli.StringFlag{
		Name:    "service",
		Aliases: []string{"s"},
		Usage:   "kernel control `NAME` to resolve",
	}
	unitFlag = &cli.Uint64Flag{
		Name:    "unit",
		Aliases: []string{"u"},
		Usage:   "control `UNIT` to bind; 0 lets the kernel allocate one",
	}
	keySizeFlag = &cli.IntFlag{
		Name:  "key-size",
		Usage: "token key length in `BYTES`",
	}
)

// loadConfig layers command-line flags over config.Load.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("service") {
		cfg.Service = c.String("service")
	}
	if c.IsSet("unit") {
		cfg.Unit = c.Uint64("unit")
	}
	if c.IsSet("key-size") {
		cfg.KeySize = c.Int("key-size")
	}
	if c.IsSet("max-writes") {
		cfg.MaxWrites = c.Uint64("max-writes")
	}
	if c.IsSet("report-every") {
		cfg.ReportEvery = c.Uint64("report-every")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("journal") {
		cfg.Journal = c.Bool("journal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func journalPath(cfg *config.Config) (string, error) {
	if filepath.IsAbs(cfg.JournalFile) {
		return cfg.JournalFile, nil
	}
	return appdir.Path(cfg.JournalFile)
}

// setup loads the config and starts logging. The returned func closes the
// journal and must be called before exit.
func setup(c *cli.Context) (*config.Config, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), kctl.ExitUsage)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("config: %v", err), kctl.ExitUsage)
	}
	log.SetStd(level)

	if cfg.Journal {
		path, err := journalPath(cfg)
		if err != nil {
			return nil, nil, cli.Exit(err.Error(), kctl.ExitUsage)
		}
		if err := log.OpenJournal(path); err != nil {
			return nil, nil, cli.Exit(err.Error(), kctl.ExitUsage)
		}
		log.Debug().Str("path", path).Msg("journal opened")
	}
	if cfg.ConfigFile != "" {
		log.Debug().Str("file", cfg.ConfigFile).Msg("config loaded")
	}
	return cfg, func() { log.Close() }, nil
}

// render writes a table to w. pterm's Render drops output errors, so the
// table is rendered to a string and written here instead.
func render(w io.Writer, tp *pterm.TablePrinter) error {
	s, err := tp.Srender()
	if err == nil {
		_, err = fmt.Fprintln(w, s)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("writing output: %v", err), kctl.ExitSoftware)
	}
	return nil
}

// exitErr turns a stage error into a cli exit with that stage's code.
func exitErr(err error) error {
	return cli.Exit(err.Error(), kctl.ExitCode(err))
}
