package taxlots

import (
	"fmt"
	"slices"

	"github.com/etnz/taxlots/date"
	"github.com/shopspring/decimal"
)

// Disposition is the consumption of part or all of one lot by a sale.
type Disposition struct {
	LotID           string    `json:"lot"`
	QuantitySold    Quantity  `json:"quantity"`
	CostBasis       Money     `json:"costBasis"`
	Proceeds        Money     `json:"proceeds"`
	RealizedGain    Money     `json:"realizedGain"`
	AcquisitionDate date.Date `json:"acquired"`
	DispositionDate date.Date `json:"disposed"`
	IsLongTerm      bool      `json:"longTerm"`
}

// Dispose computes the dispositions of the plan for a sale of plan.Quantity shares
// on saleDate for the total 'proceeds'. It returns the dispositions and the
// updated copies of the consumed lots; the plan's lots are not modified.
//
// Proceeds are split pro rata of the quantity sold from each lot, rounded down to
// the currency minor unit; the leftover units go to the largest fractional parts
// so the shares add up to 'proceeds' exactly and none is negative.
func Dispose(plan Plan, proceeds Money, saleDate date.Date) ([]Disposition, []TaxLot, error) {
	if proceeds.IsNegative() {
		return nil, nil, fmt.Errorf("proceeds cannot be negative, got %v", proceeds)
	}
	if saleDate.IsZero() {
		return nil, nil, fmt.Errorf("sale date is required")
	}
	if !plan.Quantity.IsPositive() {
		return nil, nil, fmt.Errorf("cannot sell %v shares: %w", plan.Quantity, ErrInvalidQuantity)
	}

	var (
		dispositions []Disposition
		lots         []TaxLot
		err          error
	)
	if plan.Method.Sequential() {
		dispositions, lots, err = disposeSequential(plan, saleDate)
	} else {
		dispositions, lots, err = disposeAverage(plan, saleDate)
	}
	if err != nil {
		return nil, nil, err
	}

	quantities := make([]Quantity, len(dispositions))
	for i, d := range dispositions {
		quantities[i] = d.QuantitySold
	}
	for i, share := range allocate(proceeds, quantities, plan.Quantity) {
		dispositions[i].Proceeds = share
		dispositions[i].RealizedGain = share.Sub(dispositions[i].CostBasis)
	}
	return dispositions, lots, nil
}

func newDisposition(l TaxLot, sold Quantity, basis Money, saleDate date.Date) Disposition {
	return Disposition{
		LotID:           l.id,
		QuantitySold:    sold,
		CostBasis:       basis,
		AcquisitionDate: l.acquired,
		DispositionDate: saleDate,
		IsLongTerm:      saleDate.DaysSince(l.acquired) > longTermDays,
	}
}

func disposeSequential(plan Plan, saleDate date.Date) ([]Disposition, []TaxLot, error) {
	need := plan.Quantity
	var dispositions []Disposition
	var lots []TaxLot
	for _, l := range plan.Lots {
		if need.IsZero() {
			break
		}
		sold := need.Min(l.remaining)
		if !sold.IsPositive() {
			continue
		}
		basis := l.CostOf(sold)
		if err := l.Sell(sold, saleDate); err != nil {
			return nil, nil, err
		}
		dispositions = append(dispositions, newDisposition(l, sold, basis, saleDate))
		lots = append(lots, l)
		need = need.Sub(sold)
	}
	if !need.IsZero() {
		return nil, nil, fmt.Errorf("plan is short of %v shares: %w", need, ErrInsufficientLots)
	}
	return dispositions, lots, nil
}

// disposeAverage spreads the sale over every open lot of the plan and costs each
// share at the average cost of the position.
func disposeAverage(plan Plan, saleDate date.Date) ([]Disposition, []TaxLot, error) {
	totalOpen := sumRemaining(plan.Lots)
	if totalOpen.LessThan(plan.Quantity) {
		return nil, nil, fmt.Errorf("cannot sell %v shares, only %v open: %w", plan.Quantity, totalOpen, ErrInsufficientLots)
	}
	var totalCost Money
	for _, l := range plan.Lots {
		totalCost = totalCost.Add(l.RemainingCost())
	}
	average := totalCost.Div(totalOpen)

	var dispositions []Disposition
	var lots []TaxLot
	for i, sold := range proRata(plan.Lots, plan.Quantity, totalOpen) {
		if sold.IsZero() {
			continue
		}
		l := plan.Lots[i]
		if err := l.Sell(sold, saleDate); err != nil {
			return nil, nil, err
		}
		dispositions = append(dispositions, newDisposition(l, sold, average.Mul(sold), saleDate))
		lots = append(lots, l)
	}
	return dispositions, lots, nil
}

// proRata splits quantity over the lots in proportion of their remaining
// quantity. Shares are rounded down to quantityPlaces, the leftover is then handed
// out from the last lot backwards, never beyond a lot's remaining quantity, so
// that the shares add up to quantity exactly.
func proRata(lots []TaxLot, quantity, totalOpen Quantity) []Quantity {
	shares := make([]Quantity, len(lots))
	allocated := Q(0)
	for i, l := range lots {
		shares[i] = l.remaining.Mul(quantity).Div(totalOpen).RoundDown(quantityPlaces)
		allocated = allocated.Add(shares[i])
	}
	leftover := quantity.Sub(allocated)
	for i := len(lots) - 1; i >= 0 && leftover.IsPositive(); i-- {
		extra := leftover.Min(lots[i].remaining.Sub(shares[i]))
		shares[i] = shares[i].Add(extra)
		leftover = leftover.Sub(extra)
	}
	return shares
}

// allocate splits total in proportion of quantities/whole with the largest
// remainder method: every share is rounded down to the currency minor unit, then
// the leftover units are handed out one by one to the shares with the largest
// fractional parts, later shares first on ties. Any residue below the minor unit
// goes to the last share.
func allocate(total Money, quantities []Quantity, whole Quantity) []Money {
	shares := make([]Money, len(quantities))
	if len(quantities) == 0 {
		return shares
	}
	places := total.fraction()
	fractions := make([]decimal.Decimal, len(quantities))
	allocated := decimal.Zero
	for i, q := range quantities {
		exact := total.value.Mul(q.value).Div(whole.value)
		down := exact.RoundDown(places)
		fractions[i] = exact.Sub(down)
		shares[i] = Money{value: down, cur: total.cur}
		allocated = allocated.Add(down)
	}

	order := make([]int, len(quantities))
	for i := range order {
		order[i] = len(order) - 1 - i
	}
	slices.SortStableFunc(order, func(a, b int) int { return fractions[b].Cmp(fractions[a]) })

	unit := decimal.New(1, -places)
	leftover := total.value.Sub(allocated)
	for _, i := range order {
		if leftover.LessThan(unit) {
			break
		}
		shares[i].value = shares[i].value.Add(unit)
		leftover = leftover.Sub(unit)
	}
	last := len(shares) - 1
	shares[last].value = shares[last].value.Add(leftover)
	return shares
}

// SaleSummary totals the dispositions of one sale.
type SaleSummary struct {
	Quantity      Quantity `json:"quantity"`
	Proceeds      Money    `json:"proceeds"`
	CostBasis     Money    `json:"costBasis"`
	RealizedGain  Money    `json:"realizedGain"`
	ShortTermGain Money    `json:"shortTermGain"`
	LongTermGain  Money    `json:"longTermGain"`
}

// Summarize totals dispositions, splitting the gain by holding period.
func Summarize(dispositions []Disposition) SaleSummary {
	var s SaleSummary
	if len(dispositions) > 0 {
		zero := M(0, dispositions[0].Proceeds.Currency())
		s.Proceeds, s.CostBasis, s.RealizedGain, s.ShortTermGain, s.LongTermGain = zero, zero, zero, zero, zero
	}
	for _, d := range dispositions {
		s.Quantity = s.Quantity.Add(d.QuantitySold)
		s.Proceeds = s.Proceeds.Add(d.Proceeds)
		s.CostBasis = s.CostBasis.Add(d.CostBasis)
		s.RealizedGain = s.RealizedGain.Add(d.RealizedGain)
		if d.IsLongTerm {
			s.LongTermGain = s.LongTermGain.Add(d.RealizedGain)
		} else {
			s.ShortTermGain = s.ShortTermGain.Add(d.RealizedGain)
		}
	}
	return s
}

// Loss returns the realized loss as a positive amount, or zero for a gain.
func (s SaleSummary) Loss() Money {
	if s.RealizedGain.IsNegative() {
		return s.RealizedGain.Neg()
	}
	return M(0, s.RealizedGain.Currency())
}
