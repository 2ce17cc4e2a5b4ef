package taxlots

import (
	"context"

	"github.com/etnz/taxlots/date"
)

// LotStore persists tax lots. Lists are returned in creation order.
type LotStore interface {
	// Add stores a new lot and returns it with its creation sequence set.
	Add(ctx context.Context, lot TaxLot) (TaxLot, error)
	Get(ctx context.Context, id string) (TaxLot, error)
	ListByPosition(ctx context.Context, positionID string) ([]TaxLot, error)
	ListOpenByPosition(ctx context.Context, positionID string) ([]TaxLot, error)
	ListByAcquisitionRange(ctx context.Context, positionID string, r date.Range) ([]TaxLot, error)
	// ListInWashSaleWindow returns the lots acquired at most 'days' days before or after saleDate.
	ListInWashSaleWindow(ctx context.Context, positionID string, saleDate date.Date, days int) ([]TaxLot, error)
	Update(ctx context.Context, lot TaxLot) error
}

// PositionStore persists positions. There is at most one position per (account, security).
type PositionStore interface {
	Get(ctx context.Context, id string) (Position, error)
	// Find returns the position of the security in the account, or ErrNotFound.
	Find(ctx context.Context, accountID, securityID string) (Position, error)
	Add(ctx context.Context, p Position) error
	Update(ctx context.Context, p Position) error
	ListByAccount(ctx context.Context, accountID string) ([]Position, error)
	ListBySecurity(ctx context.Context, securityID string) ([]Position, error)
	ListByEntity(ctx context.Context, entityID string) ([]Position, error)
}

// SecurityDirectory persists securities. Symbols and CUSIPs are unique.
type SecurityDirectory interface {
	Get(ctx context.Context, id string) (Security, error)
	BySymbol(ctx context.Context, symbol string) (Security, error)
	ByCUSIP(ctx context.Context, cusip string) (Security, error)
	Add(ctx context.Context, s Security) error
	Update(ctx context.Context, s Security) error
}

// Store gives access to the three stores.
type Store interface {
	Lots() LotStore
	Positions() PositionStore
	Securities() SecurityDirectory
}

// Repository is a Store able to run a unit of work atomically: either every
// write made through the Store passed to fn is committed, or none is.
// Atomic units are serialized with each other.
type Repository interface {
	Store
	Atomic(ctx context.Context, fn func(Store) error) error
}
