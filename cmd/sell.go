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

type sellCmd struct {
	account  string
	symbol   string
	date     string
	quantity string
	proceeds string
	method   string
	lots     string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares and report the realized gain per lot" }
func (*sellCmd) Usage() string {
	return `lots sell -a <account> -s <symbol|cusip> -q <quantity> -proceeds <amount> [-d <date>] [-method <method>] [-lots <id,id,...>]

  Selects the lots consumed by the sale, reduces them and prints the
  dispositions. Nothing is recorded if the sale cannot be fully matched.
  - proceeds: total amount received for the sale.
  - method: fifo, lifo, hifo, min-gain, max-gain, specific or average.
    Defaults to TAXLOTS_METHOD.
  - lots: lot ids consumed in order, implies -method specific.

  When the sale realizes a loss, the lots that may trigger the wash-sale
  rule are listed as well.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account (required)")
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP (required)")
	f.StringVar(&c.date, "d", "", "Sale date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.quantity, "q", "", "Number of shares sold (required)")
	f.StringVar(&c.proceeds, "proceeds", "", "Total proceeds of the sale (required)")
	f.StringVar(&c.method, "method", "", "Lot selection method")
	f.StringVar(&c.lots, "lots", "", "Comma separated lot ids for specific identification")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.symbol == "" || c.quantity == "" || c.proceeds == "" {
		fmt.Fprintln(os.Stderr, "Error: -a, -s, -q and -proceeds are required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	quantity, err := taxlots.ParseQuantity(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}
	ids := splitList(c.lots)
	var method taxlots.LotSelection
	if c.method != "" {
		if method, err = taxlots.ParseLotSelection(c.method); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
	}

	return run(ctx, func(ctx context.Context, book *taxlots.Book, cfg config.Config) error {
		switch {
		case len(ids) > 0:
			method = taxlots.SpecificID
		case c.method == "":
			method = cfg.Method
		}
		sec, err := book.LookupSecurity(ctx, c.symbol)
		if err != nil {
			return err
		}
		proceeds, err := taxlots.ParseMoney(c.proceeds, sec.Currency)
		if err != nil {
			return err
		}
		pos, err := book.FindPosition(ctx, c.account, sec.ID)
		if err != nil {
			return err
		}
		dispositions, err := book.ExecuteSale(ctx, taxlots.Sale{
			PositionID: pos.ID,
			Quantity:   quantity,
			Proceeds:   proceeds,
			Date:       on,
			Method:     method,
			LotIDs:     ids,
		})
		if err != nil {
			return err
		}
		report := renderer.SaleMarkdown(sec, method, dispositions)

		if loss := taxlots.Summarize(dispositions).Loss(); loss.IsPositive() {
			candidates, err := book.FindWashSaleCandidates(ctx, pos.ID, on, loss)
			if err != nil {
				return err
			}
			report += "\n" + renderer.WashSaleMarkdown(sec, on, loss, candidates)
		}
		printMarkdown(report)
		return nil
	})
}
