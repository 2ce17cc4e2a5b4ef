package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/config"
	"github.com/google/subcommands"
)

type buyCmd struct {
	account   string
	entity    string
	symbol    string
	date      string
	quantity  string
	cost      string
	kind      string
	covered   bool
	reference string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record an acquisition as a new tax lot" }
func (*buyCmd) Usage() string {
	return `lots buy -a <account> -s <symbol|cusip> -q <quantity> -p <cost per share> [-d <date>] [-type <type>] [-e <entity>] [-covered] [-ref <text>]

  Records a new tax lot in the position of the security in the account. The
  position is created on first acquisition.
  - type: PURCHASE (default), GIFT, INHERITANCE, TRANSFER, SPINOFF or MERGER.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account (required)")
	f.StringVar(&c.entity, "e", "", "Entity owning the account")
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP (required)")
	f.StringVar(&c.date, "d", "", "Acquisition date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.quantity, "q", "", "Number of shares (required)")
	f.StringVar(&c.cost, "p", "", "Cost per share (required)")
	f.StringVar(&c.kind, "type", string(taxlots.Purchase), "How the shares were acquired")
	f.BoolVar(&c.covered, "covered", false, "The broker reports the cost basis")
	f.StringVar(&c.reference, "ref", "", "Free text reference, like a trade confirmation number")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.symbol == "" || c.quantity == "" || c.cost == "" {
		fmt.Fprintln(os.Stderr, "Error: -a, -s, -q and -p are required.")
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
	kind, err := taxlots.ParseAcquisitionType(c.kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		sec, err := book.LookupSecurity(ctx, c.symbol)
		if err != nil {
			return err
		}
		cost, err := taxlots.ParseMoney(c.cost, sec.Currency)
		if err != nil {
			return err
		}
		lot, err := book.Acquire(ctx, taxlots.Acquisition{
			AccountID:    c.account,
			SecurityID:   sec.ID,
			EntityID:     c.entity,
			Date:         on,
			Quantity:     quantity,
			CostPerShare: cost,
			Type:         kind,
			Covered:      c.covered,
			Reference:    c.reference,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Lot %s: %v %s at %v on %s.\n", lot.ID(), lot.OriginalQuantity(), sec.Symbol, lot.CostPerShare(), lot.AcquisitionDate())
		return nil
	})
}
