package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/config"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type splitCmd struct {
	symbol string
	ratio  string
	date   string
}

func (*splitCmd) Name() string     { return "split" }
func (*splitCmd) Synopsis() string { return "apply a stock split to every open lot of a security" }
func (*splitCmd) Usage() string {
	return `lots split -s <symbol|cusip> -r <N:D> [-d <date>]

  Multiplies the shares of every open lot by N/D and divides their cost per
  share by the same ratio, in every account. A reverse split is written 1:10.
`
}

func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP (required)")
	f.StringVar(&c.ratio, "r", "", "Split ratio, new shares:old shares (e.g., 2:1)")
	f.StringVar(&c.date, "d", "", "Effective date, YYYY-MM-DD (defaults to today)")
}

func (c *splitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -s is required.")
		return subcommands.ExitUsageError
	}
	num, den, err := parseSplit(c.ratio)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
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
		n, err := book.ApplySplit(ctx, sec.ID, num, den, on)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %d:%d split of %s applied to %d lots.\n", num, den, sec.Symbol, n)
		return nil
	})
}

type spinoffCmd struct {
	parent string
	child  string
	ratio  string
	date   string
}

func (*spinoffCmd) Name() string     { return "spinoff" }
func (*spinoffCmd) Synopsis() string { return "spin off a new security from the open lots of a parent" }
func (*spinoffCmd) Usage() string {
	return `lots spinoff -s <parent> -child <child> -r <allocation> [-d <date>]

  Moves the allocation ratio (between 0 and 1) of the basis of every open lot
  of the parent to a new lot of the child security, in the same account and
  with the same acquisition date.
`
}

func (c *spinoffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.parent, "s", "", "Parent security symbol or CUSIP (required)")
	f.StringVar(&c.child, "child", "", "Spun off security symbol or CUSIP (required)")
	f.StringVar(&c.ratio, "r", "", "Share of the basis allocated to the child (e.g., 0.2)")
	f.StringVar(&c.date, "d", "", "Effective date, YYYY-MM-DD (defaults to today)")
}

func (c *spinoffCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.parent == "" || c.child == "" {
		fmt.Fprintln(os.Stderr, "Error: -s and -child are required.")
		return subcommands.ExitUsageError
	}
	ratio, err := decimal.NewFromString(c.ratio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing allocation ratio: %v\n", err)
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		parent, err := book.LookupSecurity(ctx, c.parent)
		if err != nil {
			return err
		}
		child, err := book.LookupSecurity(ctx, c.child)
		if err != nil {
			return err
		}
		n, err := book.ApplySpinoff(ctx, parent.ID, child.ID, ratio, on)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %s spun off from %d lots of %s.\n", child.Symbol, n, parent.Symbol)
		return nil
	})
}

type mergerCmd struct {
	old   string
	new   string
	ratio string
	cash  string
	date  string
}

func (*mergerCmd) Name() string     { return "merger" }
func (*mergerCmd) Synopsis() string { return "convert the open lots of a security into another" }
func (*mergerCmd) Usage() string {
	return `lots merger -s <old> -new <new> -r <exchange ratio> [-cash <cash in lieu per share>] [-d <date>]

  Closes every open lot of the old security and creates a lot of the new one
  with the same acquisition date, ratio times the shares and the same basis,
  minus the cash received in lieu of shares.
`
}

func (c *mergerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.old, "s", "", "Acquired security symbol or CUSIP (required)")
	f.StringVar(&c.new, "new", "", "Acquiring security symbol or CUSIP (required)")
	f.StringVar(&c.ratio, "r", "", "New shares per old share (e.g., 1.5)")
	f.StringVar(&c.cash, "cash", "", "Cash in lieu received per old share")
	f.StringVar(&c.date, "d", "", "Effective date, YYYY-MM-DD (defaults to today)")
}

func (c *mergerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.old == "" || c.new == "" {
		fmt.Fprintln(os.Stderr, "Error: -s and -new are required.")
		return subcommands.ExitUsageError
	}
	ratio, err := decimal.NewFromString(c.ratio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing exchange ratio: %v\n", err)
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		old, err := book.LookupSecurity(ctx, c.old)
		if err != nil {
			return err
		}
		acquirer, err := book.LookupSecurity(ctx, c.new)
		if err != nil {
			return err
		}
		var cash *taxlots.Money
		if c.cash != "" {
			m, err := taxlots.ParseMoney(c.cash, old.Currency)
			if err != nil {
				return err
			}
			cash = &m
		}
		n, err := book.ApplyMerger(ctx, old.ID, acquirer.ID, ratio, on, cash)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %d lots of %s converted into %s.\n", n, old.Symbol, acquirer.Symbol)
		return nil
	})
}

type renameCmd struct {
	symbol string
	to     string
	date   string
}

func (*renameCmd) Name() string     { return "rename" }
func (*renameCmd) Synopsis() string { return "change the symbol of a security" }
func (*renameCmd) Usage() string {
	return `lots rename -s <symbol|cusip> -to <new symbol> [-d <date>]

  Changes the symbol of the security. Lots and positions are untouched.
`
}

func (c *renameCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Current symbol or CUSIP (required)")
	f.StringVar(&c.to, "to", "", "New symbol (required)")
	f.StringVar(&c.date, "d", "", "Effective date, YYYY-MM-DD (defaults to today)")
}

func (c *renameCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.to == "" {
		fmt.Fprintln(os.Stderr, "Error: -s and -to are required.")
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
		if err := book.ApplySymbolChange(ctx, sec.ID, c.to, on); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %s is now %s.\n", sec.Symbol, c.to)
		return nil
	})
}
