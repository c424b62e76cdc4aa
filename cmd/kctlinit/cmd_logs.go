package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"kctlinit/pkg/kctl"
	"kctlinit/pkg/log"
)

var logsCommand = &cli.Command{
	Name:  "logs",
	Usage: "print entries from the SQLite run journal",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "dbfile",
			Aliases: []string{"f"},
			Usage:   "journal `PATH` (default: the configured journal_file)",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "number of most recent entries `NUMBER`",
			Value:   100,
		},
		&cli.StringFlag{
			Name:    "since",
			Aliases: []string{"s"},
			Usage:   "only entries newer than `TIME_SPEC` ('1h' or RFC3339)",
		},
		&cli.BoolFlag{
			Name:    "pretty",
			Aliases: []string{"p"},
			Usage:   "render entries with the console formatter instead of raw JSON",
		},
	},
	Action: logsCmd,
}

func logsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}

	dbFile := c.String("dbfile")
	if dbFile == "" {
		if dbFile, err = journalPath(cfg); err != nil {
			return cli.Exit(err.Error(), kctl.ExitUsage)
		}
	}
	if _, err := os.Stat(dbFile); err != nil {
		return cli.Exit(fmt.Sprintf("journal not found at '%s'", dbFile), kctl.ExitUsage)
	}

	if err := log.OpenJournal(dbFile); err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}
	defer log.Close()

	var entries []log.LogEntry
	if c.IsSet("since") {
		start, perr := parseTimeSpec(c.String("since"))
		if perr != nil {
			return cli.Exit(perr.Error(), kctl.ExitUsage)
		}
		entries, err = log.GetLogsSince(start, c.Int("count"))
	} else {
		if c.Int("count") <= 0 {
			return cli.Exit("--count must be a positive number", kctl.ExitUsage)
		}
		entries, err = log.GetLastNLogs(c.Int("count"))
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading journal: %v", err), kctl.ExitSoftware)
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "No journal entries found.")
		return nil
	}
	out := c.App.Writer
	for _, e := range entries {
		if !c.Bool("pretty") {
			fmt.Fprintln(out, e.LogData)
			continue
		}
		var b bytes.Buffer
		w := zerolog.ConsoleWriter{Out: &b, TimeFormat: time.RFC3339, NoColor: true}
		if _, err := w.Write([]byte(e.LogData)); err != nil {
			fmt.Fprintln(out, e.LogData)
			continue
		}
		fmt.Fprint(out, b.String())
	}
	return nil
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeSpec accepts a duration back from now ("30m") or an absolute time.
func parseTimeSpec(spec string) (time.Time, error) {
	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d), nil
	}
	for _, layout := range timeFormats {
		if ts, err := time.Parse(layout, spec); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time specification: '%s'. Use a duration (e.g. '1h') or a timestamp (e.g. '2023-10-27T15:04:05Z')", spec)
}
