package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/config"
	"github.com/etnz/taxlots/quote"
	"github.com/google/subcommands"
)

type securityCmd struct {
	symbol   string
	cusip    string
	isin     string
	currency string
}

func (*securityCmd) Name() string     { return "security" }
func (*securityCmd) Synopsis() string { return "declare a new security" }
func (*securityCmd) Usage() string {
	return `lots security -s <symbol> [-cusip <cusip>] [-isin <isin>] [-c <currency>]

  Declares a security so that lots can be acquired in it:
  - symbol: The ticker symbol (e.g., "AAPL"). Must be unique.
  - cusip, isin: Optional identifiers, validated with their check digit.
  - currency: The 3-letter currency code, defaults to TAXLOTS_CURRENCY.
`
}

func (c *securityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Security symbol (required)")
	f.StringVar(&c.cusip, "cusip", "", "CUSIP of the security")
	f.StringVar(&c.isin, "isin", "", "ISIN of the security")
	f.StringVar(&c.currency, "c", "", "Currency of the security, 3-letter code")
}

func (c *securityCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "Error: -s is required and no positional arguments are accepted.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, book *taxlots.Book, cfg config.Config) error {
		currency := c.currency
		if currency == "" {
			currency = cfg.Currency
		}
		sec, err := taxlots.NewSecurity(c.symbol, c.cusip, c.isin, currency)
		if err != nil {
			return err
		}
		if err := book.AddSecurity(ctx, sec); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Declared security %s (%s) as %s.\n", sec.Symbol, sec.Currency, sec.ID)
		return nil
	})
}

type priceCmd struct {
	symbol string
	price  string
	json   string
	path   string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "set the last price of a security" }
func (*priceCmd) Usage() string {
	return `lots price -s <symbol|cusip> -p <price>
lots price -s <symbol|cusip> -json <file|url> [-path <jsonpath>]

  Sets the last known price of a security and revalues every position holding it.
  With -json, the price is read from a JSON quote document, at the JSONPath
  expression given by -path.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Security symbol or CUSIP (required)")
	f.StringVar(&c.price, "p", "", "Price per share")
	f.StringVar(&c.json, "json", "", "JSON quote file or http(s) URL to read the price from")
	f.StringVar(&c.path, "path", quote.DefaultPath, "JSONPath of the price in the -json document")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || (c.price == "") == (c.json == "") {
		fmt.Fprintln(os.Stderr, "Error: -s and exactly one of -p or -json are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, book *taxlots.Book, _ config.Config) error {
		sec, err := book.LookupSecurity(ctx, c.symbol)
		if err != nil {
			return err
		}
		amount := c.price
		if c.json != "" {
			d, err := quote.Price(ctx, &http.Client{Timeout: 30 * time.Second}, c.json, c.path)
			if err != nil {
				return err
			}
			amount = d.String()
		}
		price, err := taxlots.ParseMoney(amount, sec.Currency)
		if err != nil {
			return err
		}
		if price.IsNegative() {
			return fmt.Errorf("price cannot be negative, got %v", price)
		}
		if err := book.UpdatePrice(ctx, sec.ID, price); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %s is now priced %v.\n", sec.Symbol, price)
		return nil
	})
}
