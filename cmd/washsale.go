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

type washSaleCmd struct {
	account    string
	symbol     string
	date       string
	loss       string
	mark       string
	disallowed string
}

func (*washSaleCmd) Name() string     { return "washsale" }
func (*washSaleCmd) Synopsis() string { return "find or mark wash-sale replacement lots" }
func (*washSaleCmd) Usage() string {
	return `lots washsale -a <account> -s <symbol|cusip> -d <sale date> -loss <amount>
lots washsale -mark <lot id> -disallowed <amount>

  Lists the lots of the position acquired within 30 days before or after a
  sale that realized a loss.
  With -mark, flags a replacement lot and adds the disallowed loss to its basis.
`
}

func (c *washSaleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account")
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP")
	f.StringVar(&c.date, "d", "", "Sale date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.loss, "loss", "", "Realized loss, as a positive amount")
	f.StringVar(&c.mark, "mark", "", "Lot id of the replacement lot to mark")
	f.StringVar(&c.disallowed, "disallowed", "", "Disallowed loss added to the basis of the marked lot")
}

func (c *washSaleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.mark != "" {
		if c.disallowed == "" {
			fmt.Fprintln(os.Stderr, "Error: -mark requires -disallowed.")
			return subcommands.ExitUsageError
		}
		return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
			amount, err := taxlots.ParseMoney(c.disallowed, "")
			if err != nil {
				return err
			}
			if err := book.MarkWashSale(ctx, c.mark, amount); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "✅ Lot %s marked as wash sale replacement.\n", c.mark)
			return nil
		})
	}

	if c.account == "" || c.symbol == "" || c.loss == "" {
		fmt.Fprintln(os.Stderr, "Error: -a, -s and -loss are required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		sec, err := book.LookupSecurity(ctx, c.symbol)
		if err != nil {
			return err
		}
		loss, err := taxlots.ParseMoney(c.loss, sec.Currency)
		if err != nil {
			return err
		}
		pos, err := book.FindPosition(ctx, c.account, sec.ID)
		if err != nil {
			return err
		}
		candidates, err := book.FindWashSaleCandidates(ctx, pos.ID, on, loss)
		if err != nil {
			return err
		}
		printMarkdown(renderer.WashSaleMarkdown(sec, on, loss, candidates))
		return nil
	})
}
