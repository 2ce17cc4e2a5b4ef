package taxlots

import (
	"fmt"
	"time"

	"github.com/etnz/taxlots/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// longTermDays is the holding period, in days, that must be exceeded for a
// disposition to be long term.
const longTermDays = 365

// TaxLot is one acquisition tranche of a security in a position.
//
// The lot keeps its total cost rather than its cost per share: the total is the
// locked-in basis and corporate actions that rescale the quantity leave it
// unchanged, the per-share cost is derived from it.
//
// Fields are only changed through the guarded operations (Sell, ApplySplit,
// ApplySpinoffAdjustment, Close, MarkWashSale) so that 0 <= remaining <= original
// always holds.
type TaxLot struct {
	id         string
	positionID string
	seq        int64 // creation order, assigned by the lot store

	acquired  date.Date
	original  Quantity
	remaining Quantity
	totalCost Money // original quantity * cost per share
	kind      AcquisitionType
	disposed  date.Date // date of the most recent reduction, zero if never reduced

	covered   bool
	washSale  bool
	washAdj   Money // disallowed loss added back to the basis
	reference string
	createdAt time.Time
}

// Acquisition describes a new lot.
type Acquisition struct {
	AccountID    string
	SecurityID   string
	EntityID     string // optional owner of the account
	Date         date.Date
	Quantity     Quantity
	CostPerShare Money
	Type         AcquisitionType // defaults to Purchase
	Covered      bool
	Reference    string
}

// NewTaxLot creates an open lot for the position.
func NewTaxLot(positionID string, a Acquisition) (TaxLot, error) {
	if !a.Quantity.IsPositive() {
		return TaxLot{}, fmt.Errorf("lot quantity must be positive, got %v: %w", a.Quantity, ErrInvalidQuantity)
	}
	if a.CostPerShare.IsNegative() {
		return TaxLot{}, fmt.Errorf("cost per share cannot be negative, got %v", a.CostPerShare)
	}
	if a.Date.IsZero() {
		return TaxLot{}, fmt.Errorf("acquisition date is required")
	}
	return newLot(positionID, a, a.CostPerShare.Mul(a.Quantity)), nil
}

// newLot creates a lot whose basis is given as a total, a.CostPerShare is ignored.
func newLot(positionID string, a Acquisition, totalCost Money) TaxLot {
	kind := a.Type
	if kind == "" {
		kind = Purchase
	}
	return TaxLot{
		id:         uuid.NewString(),
		positionID: positionID,
		acquired:   a.Date,
		original:   a.Quantity,
		remaining:  a.Quantity,
		totalCost:  totalCost,
		kind:       kind,
		covered:    a.Covered,
		washAdj:    M(0, totalCost.Currency()),
		reference:  a.Reference,
		createdAt:  time.Now().UTC(),
	}
}

func (l TaxLot) ID() string                       { return l.id }
func (l TaxLot) PositionID() string               { return l.positionID }
func (l TaxLot) Seq() int64                       { return l.seq }
func (l TaxLot) AcquisitionDate() date.Date       { return l.acquired }
func (l TaxLot) OriginalQuantity() Quantity       { return l.original }
func (l TaxLot) RemainingQuantity() Quantity      { return l.remaining }
func (l TaxLot) TotalCost() Money                 { return l.totalCost }
func (l TaxLot) AcquisitionType() AcquisitionType { return l.kind }
func (l TaxLot) DispositionDate() date.Date       { return l.disposed }
func (l TaxLot) IsCovered() bool                  { return l.covered }
func (l TaxLot) WashSaleDisallowed() bool         { return l.washSale }
func (l TaxLot) WashSaleAdjustment() Money        { return l.washAdj }
func (l TaxLot) Reference() string                { return l.reference }
func (l TaxLot) CreatedAt() time.Time             { return l.createdAt }
func (l TaxLot) Currency() string                 { return l.totalCost.Currency() }
func (l TaxLot) IsOpen() bool                     { return l.remaining.IsPositive() }
func (l TaxLot) IsFullyDisposed() bool            { return l.remaining.IsZero() }

// CostPerShare returns the basis of one share.
func (l TaxLot) CostPerShare() Money { return l.totalCost.Div(l.original) }

// CostOf returns the basis of q shares of this lot.
func (l TaxLot) CostOf(q Quantity) Money { return l.totalCost.Mul(q).Div(l.original) }

// RemainingCost returns the basis of the shares still held.
func (l TaxLot) RemainingCost() Money { return l.CostOf(l.remaining) }

// AdjustedTotalCost is the total cost including any wash-sale adjustment.
func (l TaxLot) AdjustedTotalCost() Money { return l.totalCost.Add(l.washAdj) }

// HoldingPeriodDays returns the days elapsed between acquisition and the
// disposition date, or 'today' if the lot was never reduced.
func (l TaxLot) HoldingPeriodDays(today date.Date) int {
	end := l.disposed
	if end.IsZero() {
		end = today
	}
	return end.DaysSince(l.acquired)
}

// IsLongTerm reports whether the holding period exceeds one year.
func (l TaxLot) IsLongTerm(today date.Date) bool { return l.HoldingPeriodDays(today) > longTermDays }

// Sell removes q shares from the lot on the given day.
func (l *TaxLot) Sell(q Quantity, on date.Date) error {
	if !q.IsPositive() {
		return fmt.Errorf("cannot sell %v shares of lot %s: %w", q, l.id, ErrInvalidQuantity)
	}
	if q.GreaterThan(l.remaining) {
		return fmt.Errorf("cannot sell %v shares of lot %s, only %v remaining: %w", q, l.id, l.remaining, ErrInvalidQuantity)
	}
	l.remaining = l.remaining.Sub(q)
	l.disposed = on
	return nil
}

// ApplySplit rescales the lot by numerator/denominator. The total cost is unchanged,
// hence the cost per share is divided by the same ratio.
func (l *TaxLot) ApplySplit(numerator, denominator int64) error {
	if numerator <= 0 || denominator <= 0 {
		return fmt.Errorf("split %d:%d: %w", numerator, denominator, ErrInvalidRatio)
	}
	num, den := Q(numerator), Q(denominator)
	l.original = l.original.Mul(num).Div(den)
	l.remaining = l.remaining.Mul(num).Div(den)
	return nil
}

// ApplySpinoffAdjustment moves 'ratio' of the basis out of the lot; the
// cost per share becomes cost * (1 - ratio). A wash-sale adjustment shrinks in
// the same proportion.
func (l *TaxLot) ApplySpinoffAdjustment(ratio decimal.Decimal) error {
	if !ratio.IsPositive() || ratio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("spinoff allocation %v must be in ]0, 1[: %w", ratio, ErrInvalidRatio)
	}
	kept := decimal.NewFromInt(1).Sub(ratio)
	l.totalCost = l.totalCost.Scale(kept)
	l.washAdj = l.washAdj.Scale(kept)
	return nil
}

// inheritWashSale carries 'share' of the wash-sale adjustment of 'from' over to a
// lot created from it by a corporate action.
func (l *TaxLot) inheritWashSale(from TaxLot, share decimal.Decimal) {
	if !from.washSale {
		return
	}
	l.washSale = true
	l.washAdj = l.washAdj.Add(from.washAdj.Scale(share))
}

// Close disposes of every remaining share without a sale, as in a merger conversion.
func (l *TaxLot) Close(on date.Date) {
	l.remaining = Q(0)
	l.disposed = on
}

// MarkWashSale flags the lot as a replacement purchase and adds the disallowed
// loss to its basis adjustment.
func (l *TaxLot) MarkWashSale(disallowed Money) error {
	if !disallowed.IsPositive() {
		return fmt.Errorf("disallowed loss must be positive, got %v", disallowed)
	}
	l.washSale = true
	l.washAdj = l.washAdj.Add(disallowed)
	return nil
}

// LotRecord is the persisted form of a TaxLot.
type LotRecord struct {
	ID                 string          `json:"id"`
	PositionID         string          `json:"position"`
	Seq                int64           `json:"seq"`
	AcquisitionDate    date.Date       `json:"acquired"`
	OriginalQuantity   Quantity        `json:"original"`
	RemainingQuantity  Quantity        `json:"remaining"`
	TotalCost          Money           `json:"cost"`
	AcquisitionType    AcquisitionType `json:"type"`
	DispositionDate    date.Date       `json:"disposed,omitzero"`
	Covered            bool            `json:"covered,omitempty"`
	WashSaleDisallowed bool            `json:"washSale,omitempty"`
	WashSaleAdjustment Money           `json:"washSaleAdjustment"`
	Reference          string          `json:"reference,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Record returns the persisted form of the lot.
func (l TaxLot) Record() LotRecord {
	return LotRecord{
		ID:                 l.id,
		PositionID:         l.positionID,
		Seq:                l.seq,
		AcquisitionDate:    l.acquired,
		OriginalQuantity:   l.original,
		RemainingQuantity:  l.remaining,
		TotalCost:          l.totalCost,
		AcquisitionType:    l.kind,
		DispositionDate:    l.disposed,
		Covered:            l.covered,
		WashSaleDisallowed: l.washSale,
		WashSaleAdjustment: l.washAdj,
		Reference:          l.reference,
		CreatedAt:          l.createdAt,
	}
}

// RestoreLot rebuilds a lot from its persisted form, checking its invariants.
func RestoreLot(r LotRecord) (TaxLot, error) {
	switch {
	case r.ID == "":
		return TaxLot{}, fmt.Errorf("lot id is required")
	case !r.OriginalQuantity.IsPositive():
		return TaxLot{}, fmt.Errorf("lot %s: original quantity %v must be positive: %w", r.ID, r.OriginalQuantity, ErrInvalidQuantity)
	case r.RemainingQuantity.IsNegative() || r.RemainingQuantity.GreaterThan(r.OriginalQuantity):
		return TaxLot{}, fmt.Errorf("lot %s: remaining quantity %v out of [0, %v]: %w", r.ID, r.RemainingQuantity, r.OriginalQuantity, ErrInvalidQuantity)
	case r.TotalCost.IsNegative():
		return TaxLot{}, fmt.Errorf("lot %s: negative cost %v", r.ID, r.TotalCost)
	}
	return TaxLot{
		id:         r.ID,
		positionID: r.PositionID,
		seq:        r.Seq,
		acquired:   r.AcquisitionDate,
		original:   r.OriginalQuantity,
		remaining:  r.RemainingQuantity,
		totalCost:  r.TotalCost,
		kind:       r.AcquisitionType,
		disposed:   r.DispositionDate,
		covered:    r.Covered,
		washSale:   r.WashSaleDisallowed,
		washAdj:    r.WashSaleAdjustment,
		reference:  r.Reference,
		createdAt:  r.CreatedAt,
	}, nil
}
