package taxlots

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Position aggregates the lots of one security in one account. It caches a
// snapshot of its open lots, refreshed by Recompute after every change.
type Position struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account"`
	SecurityID  string    `json:"security"`
	EntityID    string    `json:"entity,omitempty"`
	Quantity    Quantity  `json:"quantity"`
	CostBasis   Money     `json:"costBasis"`
	MarketValue Money     `json:"marketValue"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewPosition returns an empty position for the (account, security) pair.
func NewPosition(accountID, entityID string, sec Security) (Position, error) {
	if accountID == "" {
		return Position{}, fmt.Errorf("account id is required")
	}
	return Position{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		SecurityID:  sec.ID,
		EntityID:    entityID,
		CostBasis:   M(0, sec.Currency),
		MarketValue: M(0, sec.Currency),
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// Recompute refreshes the cached quantity, cost basis and market value from the
// open lots. A zero price leaves the market value at zero.
func (p *Position) Recompute(lots []TaxLot, price Money) {
	quantity := Q(0)
	basis := M(0, p.CostBasis.Currency())
	for _, l := range lots {
		if !l.IsOpen() {
			continue
		}
		quantity = quantity.Add(l.remaining)
		basis = basis.Add(l.RemainingCost())
	}
	p.Quantity = quantity
	p.CostBasis = basis
	p.MarketValue = price.Mul(quantity)
	p.UpdatedAt = time.Now().UTC()
}

// UnrealizedGain returns market value minus cost basis.
func (p Position) UnrealizedGain() Money { return p.MarketValue.Sub(p.CostBasis) }
