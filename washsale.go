package taxlots

import (
	"context"
	"fmt"

	"github.com/etnz/taxlots/date"
)

// WashSaleWindowDays is the number of days before and after a loss sale during
// which a purchase is a replacement.
const WashSaleWindowDays = 30

// WashSaleDetector finds replacement lots of a loss sale.
type WashSaleDetector struct {
	Lots LotStore
}

// FindCandidates returns the lots of the position acquired within 30 days
// before or after saleDate, open or closed, ordered by acquisition date.
//
// loss is the realized loss as a positive amount; a zero or negative loss (a
// gain) has no replacement lots and the store is not queried.
func (d WashSaleDetector) FindCandidates(ctx context.Context, positionID string, saleDate date.Date, loss Money) ([]TaxLot, error) {
	if !loss.IsPositive() {
		return nil, nil
	}
	lots, err := d.Lots.ListInWashSaleWindow(ctx, positionID, saleDate, WashSaleWindowDays)
	if err != nil {
		return nil, fmt.Errorf("cannot list wash sale window of position %s: %w", positionID, err)
	}
	return WashSaleCandidates(lots, saleDate, loss), nil
}

// WashSaleCandidates filters and orders lots already loaded in memory, with the
// same rules as FindCandidates.
func WashSaleCandidates(lots []TaxLot, saleDate date.Date, loss Money) []TaxLot {
	if !loss.IsPositive() {
		return nil
	}
	window := date.Around(saleDate, WashSaleWindowDays)
	var candidates []TaxLot
	for _, l := range lots {
		if window.Contains(l.acquired) {
			candidates = append(candidates, l)
		}
	}
	return sortLots(candidates, byAcquisition)
}
