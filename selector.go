package taxlots

import (
	"cmp"
	"fmt"
	"slices"
)

// Plan is the ordered list of lots a sale consumes.
//
// For sequential methods the lots are consumed from the front, the last one
// possibly partially. For AverageCost the plan holds every open lot and the
// quantity is spread over them pro rata.
type Plan struct {
	Method   LotSelection
	Quantity Quantity
	Lots     []TaxLot
}

// lotOrder compares two lots for a sequential method, ties excluded.
type lotOrder func(a, b TaxLot) int

func byAcquisition(a, b TaxLot) int {
	switch {
	case a.acquired.Before(b.acquired):
		return -1
	case a.acquired.After(b.acquired):
		return 1
	default:
		return 0
	}
}

// costPlaces is the precision at which costs per share are compared. Splits
// that do not divide the quantity exactly leave noise in the last digits of the
// division, equal costs must still tie.
const costPlaces = 10

func byCostPerShare(a, b TaxLot) int {
	ca := a.CostPerShare().Decimal().Round(costPlaces)
	cb := b.CostPerShare().Decimal().Round(costPlaces)
	return ca.Cmp(cb)
}

func reverse(o lotOrder) lotOrder { return func(a, b TaxLot) int { return o(b, a) } }

// lotOrders maps every method that sorts lots to its ordering.
// SpecificID keeps the caller's order.
var lotOrders = map[LotSelection]lotOrder{
	FIFO:         byAcquisition,
	LIFO:         reverse(byAcquisition),
	HIFO:         reverse(byCostPerShare),
	MinimizeGain: reverse(byCostPerShare),
	MaximizeGain: byCostPerShare,
	AverageCost:  byAcquisition,
}

// sortLots sorts a copy of the lots, breaking ties by creation order.
func sortLots(lots []TaxLot, o lotOrder) []TaxLot {
	sorted := slices.Clone(lots)
	slices.SortStableFunc(sorted, func(a, b TaxLot) int {
		if c := o(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return sorted
}

// SelectForSale chooses the lots consumed by the sale of 'quantity' shares.
//
// openLots are the lots of the position; closed lots are never candidates.
// specificLotIDs is only used by SpecificID.
func SelectForSale(openLots []TaxLot, quantity Quantity, method LotSelection, specificLotIDs []string) (Plan, error) {
	if !quantity.IsPositive() {
		return Plan{}, fmt.Errorf("cannot sell %v shares: %w", quantity, ErrInvalidQuantity)
	}

	var candidates []TaxLot
	switch method {
	case SpecificID:
		var err error
		if candidates, err = specificLots(openLots, specificLotIDs); err != nil {
			return Plan{}, err
		}
	case FIFO, LIFO, HIFO, MinimizeGain, MaximizeGain, AverageCost:
		open := slices.DeleteFunc(slices.Clone(openLots), func(l TaxLot) bool { return !l.IsOpen() })
		candidates = sortLots(open, lotOrders[method])
	default:
		return Plan{}, fmt.Errorf("unsupported lot selection method %v", method)
	}

	if available := sumRemaining(candidates); available.LessThan(quantity) {
		return Plan{}, fmt.Errorf("cannot sell %v shares with %v method, only %v available: %w", quantity, method, available, ErrInsufficientLots)
	}

	plan := Plan{Method: method, Quantity: quantity}
	if !method.Sequential() {
		plan.Lots = candidates
		return plan, nil
	}
	need := quantity
	for _, l := range candidates {
		if need.IsZero() {
			break
		}
		plan.Lots = append(plan.Lots, l)
		need = need.Sub(need.Min(l.remaining))
	}
	return plan, nil
}

// specificLots returns the named lots, in the given order.
func specificLots(openLots []TaxLot, ids []string) ([]TaxLot, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("specific identification requires at least one lot: %w", ErrInvalidLotSelection)
	}
	index := make(map[string]TaxLot, len(openLots))
	for _, l := range openLots {
		index[l.id] = l
	}
	seen := make(map[string]bool, len(ids))
	lots := make([]TaxLot, 0, len(ids))
	for _, id := range ids {
		l, ok := index[id]
		if !ok || !l.IsOpen() {
			return nil, fmt.Errorf("lot %q is not an open lot of the position: %w", id, ErrInvalidLotSelection)
		}
		if seen[id] {
			return nil, fmt.Errorf("lot %q is selected twice: %w", id, ErrInvalidLotSelection)
		}
		seen[id] = true
		lots = append(lots, l)
	}
	return lots, nil
}
