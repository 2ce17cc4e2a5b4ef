// Package cmd implements the CLI application to track tax lots.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/config"
	"github.com/etnz/taxlots/sqlitestore"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&securityCmd{}, "securities")
	c.Register(&priceCmd{}, "securities")

	c.Register(&buyCmd{}, "lots")
	c.Register(&sellCmd{}, "lots")
	c.Register(&lotsCmd{}, "lots")
	c.Register(&washSaleCmd{}, "lots")

	c.Register(&splitCmd{}, "corporate actions")
	c.Register(&spinoffCmd{}, "corporate actions")
	c.Register(&mergerCmd{}, "corporate actions")
	c.Register(&renameCmd{}, "corporate actions")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", "", "Path to the SQLite database (overrides "+config.EnvDatabase+")")
var logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides "+config.EnvLogLevel+")")
var raw = flag.Bool("raw", false, "Print reports as plain markdown instead of rendering them for the terminal")

// stdout receives the command reports.
var stdout io.Writer = os.Stdout

// settings loads the configuration and applies the global flags on top of it.
func settings() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *logLevel != "" {
		level, err := zerolog.ParseLevel(*logLevel)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid -log-level: %w", err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// newLogger returns a human readable logger writing to stderr.
func newLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// run opens the book described by the configuration, calls fn, and closes the
// book. Errors are printed to stderr.
func run(ctx context.Context, fn func(ctx context.Context, book *taxlots.Book, cfg config.Config) error) subcommands.ExitStatus {
	cfg, err := settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := newLogger(cfg.LogLevel)

	repo, err := sqlitestore.Open(cfg.DatabasePath, cfg.CacheTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer repo.Close()
	log.Debug().Str("db", cfg.DatabasePath).Msg("database opened")

	if err := fn(ctx, taxlots.NewBook(repo, log), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *raw {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}
