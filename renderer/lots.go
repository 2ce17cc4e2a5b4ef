package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/date"
)

// LotsMarkdown renders a position and its lots. Open lots come first, closed
// lots are listed in a separate section only when there are some.
func LotsMarkdown(sec taxlots.Security, pos taxlots.Position, lots []taxlots.TaxLot, today date.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s in %s\n\n", sec.Symbol, pos.AccountID)

	fmt.Fprintf(&b, "Quantity: %v  \n", pos.Quantity)
	fmt.Fprintf(&b, "Cost Basis: %v  \n", pos.CostBasis)
	if !sec.Price.IsZero() {
		fmt.Fprintf(&b, "Market Value: %v (%v at %v)  \n", pos.MarketValue, pos.UnrealizedGain().SignedString(), sec.Price)
	}
	fmt.Fprintln(&b)

	fmt.Fprint(&b, "## Open Lots\n\n")
	fmt.Fprintln(&b, "| Lot | Acquired | Type | Remaining | Cost/Share | Cost Basis | Days | Term | Wash Sale |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|---:|:---:|---:|")
	for _, l := range lots {
		if !l.IsOpen() {
			continue
		}
		wash := ""
		if l.WashSaleDisallowed() {
			wash = l.WashSaleAdjustment().String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %v | %v | %v | %d | %s | %s |\n",
			shortID(l.ID()),
			l.AcquisitionDate(),
			l.AcquisitionType(),
			l.RemainingQuantity(),
			l.CostPerShare(),
			l.RemainingCost(),
			l.HoldingPeriodDays(today),
			term(l.IsLongTerm(today)),
			wash,
		)
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Closed Lots\n\n")
		fmt.Fprintln(w, "| Lot | Acquired | Disposed | Type | Original | Cost/Share | Term |")
		fmt.Fprintln(w, "|:---|:---|:---|:---|---:|---:|:---:|")
		closed := false
		for _, l := range lots {
			if l.IsOpen() {
				continue
			}
			closed = true
			fmt.Fprintf(w, "| %s | %s | %s | %s | %v | %v | %s |\n",
				shortID(l.ID()),
				l.AcquisitionDate(),
				orDash(l.DispositionDate()),
				l.AcquisitionType(),
				l.OriginalQuantity(),
				l.CostPerShare(),
				term(l.IsLongTerm(today)),
			)
		}
		return closed
	})
	return b.String()
}

// PositionsMarkdown renders the positions of an account or an entity. Securities
// are looked up by id, unknown ones are shown by id.
func PositionsMarkdown(title string, positions []taxlots.Position, securities map[string]taxlots.Security) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintln(&b, "| Account | Security | Quantity | Cost Basis | Market Value | Unrealized |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|")
	for _, p := range positions {
		name := p.SecurityID
		if sec, ok := securities[p.SecurityID]; ok {
			name = sec.Symbol
		}
		value, gain := "-", "-" // no known price
		if !p.MarketValue.IsZero() {
			value, gain = p.MarketValue.String(), p.UnrealizedGain().SignedString()
		}
		fmt.Fprintf(&b, "| %s | %s | %v | %v | %s | %s |\n",
			p.AccountID,
			name,
			p.Quantity,
			p.CostBasis,
			value,
			gain,
		)
	}
	return b.String()
}
