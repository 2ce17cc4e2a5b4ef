package taxlots

import (
	"testing"

	"github.com/etnz/taxlots/date"
	"github.com/google/go-cmp/cmp"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// dateComparer lets cmp compare dates.
var dateComparer = cmp.Comparer(func(a, b date.Date) bool { return a == b })

// lotFactory creates lots in the same position with increasing creation order.
type lotFactory struct {
	t   *testing.T
	seq int64
}

func (f *lotFactory) lot(acquired string, quantity, cost float64) TaxLot {
	f.t.Helper()
	l, err := NewTaxLot("position", Acquisition{
		Date:         date.MustParse(acquired),
		Quantity:     Q(quantity),
		CostPerShare: USD(cost),
	})
	if err != nil {
		f.t.Fatalf("NewTaxLot() error = %v", err)
	}
	f.seq++
	l.seq = f.seq
	return l
}

// ids returns the ids of the lots.
func ids(lots []TaxLot) []string {
	var list []string
	for _, l := range lots {
		list = append(list, l.ID())
	}
	return list
}
