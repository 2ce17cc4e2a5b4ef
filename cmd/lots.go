package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/config"
	"github.com/etnz/taxlots/renderer"
	"github.com/google/subcommands"
)

type lotsCmd struct {
	account string
	entity  string
	symbol  string
	date    string
	year    int
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "display positions and their tax lots" }
func (*lotsCmd) Usage() string {
	return `lots lots -a <account> [-s <symbol|cusip>] [-d <date>] [-year <tax year>]
lots lots -e <entity>

  With -s, displays the lots of the position, their holding period on the
  given date and their cost basis. With -year, only the lots closed during
  that tax year are listed.
  Without -s, displays the positions of the account, or of every account of
  the entity with -e.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account")
	f.StringVar(&c.entity, "e", "", "Entity, lists the positions across its accounts")
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP")
	f.StringVar(&c.date, "d", "", "Date used for holding periods, YYYY-MM-DD (defaults to today)")
	f.IntVar(&c.year, "year", 0, "Only list the lots closed during this tax year")
}

func (c *lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.account == "") == (c.entity == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -a or -e is required.")
		return subcommands.ExitUsageError
	}
	if c.symbol != "" && c.account == "" {
		fmt.Fprintln(os.Stderr, "Error: -s requires -a.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		if c.symbol == "" {
			return c.positions(ctx, book)
		}
		sec, err := book.LookupSecurity(ctx, c.symbol)
		if err != nil {
			return err
		}
		pos, err := book.FindPosition(ctx, c.account, sec.ID)
		if err != nil {
			return err
		}
		var lots []taxlots.TaxLot
		if c.year != 0 {
			lots, err = book.ClosedLots(ctx, pos.ID, c.year)
		} else {
			lots, err = book.Lots(ctx, pos.ID)
		}
		if err != nil {
			return err
		}
		printMarkdown(renderer.LotsMarkdown(sec, pos, lots, on))
		return nil
	})
}

func (c *lotsCmd) positions(ctx context.Context, book *taxlots.Book) error {
	var (
		positions []taxlots.Position
		title     string
		err       error
	)
	if c.entity != "" {
		title = "Positions of " + c.entity
		positions, err = book.EntityPositions(ctx, c.entity)
	} else {
		title = "Positions in " + c.account
		positions, err = book.AccountPositions(ctx, c.account)
	}
	if err != nil {
		return err
	}
	securities := make(map[string]taxlots.Security)
	for _, p := range positions {
		if _, ok := securities[p.SecurityID]; ok {
			continue
		}
		sec, err := book.Security(ctx, p.SecurityID)
		if err != nil {
			return err
		}
		securities[sec.ID] = sec
	}
	printMarkdown(renderer.PositionsMarkdown(title, positions, securities))
	return nil
}
