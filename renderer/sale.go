package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/date"
)

// SaleMarkdown renders the dispositions of one sale and their totals.
func SaleMarkdown(sec taxlots.Security, method taxlots.LotSelection, dispositions []taxlots.Disposition) string {
	var b strings.Builder
	s := taxlots.Summarize(dispositions)
	on := ""
	if len(dispositions) > 0 {
		on = " on " + dispositions[0].DispositionDate.String()
	}
	fmt.Fprintf(&b, "# Sale of %v %s%s\n\n", s.Quantity, sec.Symbol, on)
	fmt.Fprintf(&b, "Method: %s\n\n", method)

	fmt.Fprintln(&b, "| Lot | Acquired | Quantity | Cost Basis | Proceeds | Gain | Term |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|:---:|")
	for _, d := range dispositions {
		fmt.Fprintf(&b, "| %s | %s | %v | %v | %v | %s | %s |\n",
			shortID(d.LotID),
			d.AcquisitionDate,
			d.QuantitySold,
			d.CostBasis,
			d.Proceeds,
			d.RealizedGain.SignedString(),
			term(d.IsLongTerm),
		)
	}
	fmt.Fprintf(&b, "| **%s** | | **%v** | **%v** | **%v** | **%s** | |\n\n",
		"Total", s.Quantity, s.CostBasis, s.Proceeds, s.RealizedGain.SignedString())

	fmt.Fprintf(&b, "Short-term gain: %s  \n", s.ShortTermGain.SignedString())
	fmt.Fprintf(&b, "Long-term gain: %s\n", s.LongTermGain.SignedString())
	return b.String()
}

// WashSaleMarkdown renders the replacement lots that may trigger the wash-sale rule.
func WashSaleMarkdown(sec taxlots.Security, saleDate date.Date, loss taxlots.Money, candidates []taxlots.TaxLot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Wash Sale Check for %s\n\n", sec.Symbol)
	fmt.Fprintf(&b, "Loss of %v realized on %s, window %s.\n\n", loss, saleDate, date.Around(saleDate, taxlots.WashSaleWindowDays))
	if len(candidates) == 0 {
		fmt.Fprintln(&b, "No replacement lot.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Lot | Acquired | Quantity | Cost/Share | Days from Sale | Marked |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|:---:|")
	for _, l := range candidates {
		marked := ""
		if l.WashSaleDisallowed() {
			marked = "X"
		}
		fmt.Fprintf(&b, "| %s | %s | %v | %v | %+d | %s |\n",
			shortID(l.ID()),
			l.AcquisitionDate(),
			l.OriginalQuantity(),
			l.CostPerShare(),
			l.AcquisitionDate().DaysSince(saleDate),
			marked,
		)
	}
	return b.String()
}
