package taxlots

import "errors"

var (
	// ErrInsufficientLots is returned when the lots cannot supply the quantity to sell.
	ErrInsufficientLots = errors.New("insufficient lots")
	// ErrInvalidLotSelection is returned when a specific-id sale names a lot that is
	// closed, unknown or held by another position.
	ErrInvalidLotSelection = errors.New("invalid lot selection")
	// ErrNotFound is returned by stores for unknown identifiers.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by stores when an identifier or a unique key is already used.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidQuantity is returned for zero, negative or excessive quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidRatio is returned for corporate-action ratios out of their domain.
	ErrInvalidRatio = errors.New("invalid ratio")
)
