// Command seedsql converts an agency spreadsheet export into an idempotent
// SQL upsert script.
//
//	seedsql [--delim ,] [--dialect sqlite|postgres] [--report r.yaml] [input] [output]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/logging"
	"github.com/JonMunkholm/agencydir/internal/seed"
)

const (
	defaultInput  = "./data/agencies.tsv"
	defaultOutput = "./import_agencies.sql"
)

func main() {
	// Optional; flags and env still work without it.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "seedsql:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "seedsql",
		Usage:     "generate an upsert script for the agencies table",
		ArgsUsage: "[input] [output]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "delim",
				Aliases: []string{"d"},
				Value:   ",",
				Usage:   `cell delimiter for text input; \t or "tab" for TSV`,
				EnvVars: []string{"SEED_DELIM"},
			},
			&cli.StringFlag{
				Name:    "dialect",
				Value:   string(seed.DialectSQLite),
				Usage:   "sqlite or postgres",
				EnvVars: []string{"SEED_DIALECT"},
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "write a YAML summary of generated ids and skipped rows to `FILE`",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	log := logging.New(c.App.ErrWriter, c.String("log-level"), "text")

	input, output := defaultInput, defaultOutput
	if c.NArg() > 0 {
		input = c.Args().Get(0)
	}
	if c.NArg() > 1 {
		output = c.Args().Get(1)
	}

	delim, err := seed.ParseDelimiter(c.String("delim"))
	if err != nil {
		return err
	}
	dialect, err := seed.ParseDialect(c.String("dialect"))
	if err != nil {
		return err
	}

	rows, err := seed.LoadRows(input, delim)
	if err != nil {
		return userError(err)
	}
	if len(rows) > 0 {
		log.Debug("detected headers", "columns", rows[0])
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	res, err := seed.Generate(f, rows, seed.Options{Dialect: dialect})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(output)
		return userError(err)
	}
	log.Debug("mapped columns", "columns", res.Columns)

	for _, s := range res.Skipped {
		log.Warn("row skipped", slog.Int("row", s.Row), slog.String("name", s.Name), slog.String("reason", s.Reason))
	}

	if path := c.String("report"); path != "" {
		err := seed.WriteReport(path, seed.Report{
			Input:       input,
			Output:      output,
			Dialect:     dialect,
			GeneratedAt: time.Now().UTC(),
			Result:      *res,
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(c.App.Writer, "Wrote %s (%d rows, %d skipped)\n", output, res.Rows, len(res.Skipped))
	return nil
}

// userError prefixes catalogued input errors with their message, code and
// suggested action. Other errors pass through unchanged.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
}
