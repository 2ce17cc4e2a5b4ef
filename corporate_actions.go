package taxlots

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/taxlots/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CorporateActionProcessor applies issuer events to every position holding the
// security. Each action runs as a single atomic unit of the repository: it is
// applied to all lots or to none.
type CorporateActionProcessor struct {
	repo Repository
	log  zerolog.Logger
}

// NewCorporateActionProcessor returns a processor writing to repo.
func NewCorporateActionProcessor(repo Repository, log zerolog.Logger) *CorporateActionProcessor {
	return &CorporateActionProcessor{repo: repo, log: log}
}

// openLotsOf calls fn for every open lot of every position of the security, then
// refreshes each touched position.
func openLotsOf(ctx context.Context, s Store, securityID string, fn func(pos Position, l TaxLot) error) error {
	if _, err := s.Securities().Get(ctx, securityID); err != nil {
		return fmt.Errorf("security %q: %w", securityID, err)
	}
	positions, err := s.Positions().ListBySecurity(ctx, securityID)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		lots, err := s.Lots().ListOpenByPosition(ctx, pos.ID)
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			continue
		}
		for _, l := range lots {
			if err := fn(pos, l); err != nil {
				return err
			}
		}
		if _, err := refreshPosition(ctx, s, pos); err != nil {
			return err
		}
	}
	return nil
}

// ApplySplit multiplies the quantity of every open lot of the security by
// numerator/denominator and divides its cost per share by the same ratio.
// It returns the number of lots changed.
func (p *CorporateActionProcessor) ApplySplit(ctx context.Context, securityID string, numerator, denominator int64, effective date.Date) (int, error) {
	if numerator <= 0 || denominator <= 0 {
		return 0, fmt.Errorf("split %d:%d: %w", numerator, denominator, ErrInvalidRatio)
	}
	var count int
	err := p.repo.Atomic(ctx, func(s Store) error {
		count = 0
		return openLotsOf(ctx, s, securityID, func(_ Position, l TaxLot) error {
			if err := l.ApplySplit(numerator, denominator); err != nil {
				return err
			}
			count++
			return s.Lots().Update(ctx, l)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("cannot apply split %d:%d to %s: %w", numerator, denominator, securityID, err)
	}
	p.log.Info().Str("security", securityID).Int64("numerator", numerator).Int64("denominator", denominator).
		Stringer("effective", effective).Int("lots", count).Msg("split applied")
	return count, nil
}

// ApplySpinoff moves 'allocationRatio' of the basis of every open lot of the
// parent into a new child lot of the same account, with the same acquisition
// date and as many shares as the parent has remaining.
// It returns the number of parent lots processed.
func (p *CorporateActionProcessor) ApplySpinoff(ctx context.Context, parentID, childID string, allocationRatio decimal.Decimal, effective date.Date) (int, error) {
	if !allocationRatio.IsPositive() || allocationRatio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("spinoff allocation %v must be in ]0, 1[: %w", allocationRatio, ErrInvalidRatio)
	}
	if parentID == childID {
		return 0, fmt.Errorf("spinoff of %s into itself", parentID)
	}
	var count int
	err := p.repo.Atomic(ctx, func(s Store) error {
		count = 0
		child, err := s.Securities().Get(ctx, childID)
		if err != nil {
			return fmt.Errorf("child security %q: %w", childID, err)
		}
		children := make(map[string]Position) // by account
		err = openLotsOf(ctx, s, parentID, func(pos Position, l TaxLot) error {
			childPos, ok := children[pos.AccountID]
			if !ok {
				if childPos, err = findOrAddPosition(ctx, s, pos.AccountID, pos.EntityID, child); err != nil {
					return err
				}
				children[pos.AccountID] = childPos
			}
			childLot := newLot(childPos.ID, Acquisition{
				Date:      l.acquired,
				Quantity:  l.remaining,
				Type:      Spinoff,
				Covered:   l.covered,
				Reference: "spinoff of lot " + l.id,
			}, l.RemainingCost().Scale(allocationRatio))
			childLot.inheritWashSale(l, allocationRatio)
			if err := l.ApplySpinoffAdjustment(allocationRatio); err != nil {
				return err
			}
			if err := s.Lots().Update(ctx, l); err != nil {
				return err
			}
			if _, err := s.Lots().Add(ctx, childLot); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			return err
		}
		for _, pos := range children {
			if _, err := refreshPosition(ctx, s, pos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cannot apply spinoff of %s from %s: %w", childID, parentID, err)
	}
	p.log.Info().Str("parent", parentID).Str("child", childID).Stringer("allocation", allocationRatio).
		Stringer("effective", effective).Int("lots", count).Msg("spinoff applied")
	return count, nil
}

// ApplyMerger closes every open lot of the old security and converts it into a
// lot of the new one, exchangeRatio new shares per old share. The basis is
// carried over, less the cash received in lieu of shares if cashInLieuPerShare is
// not nil. It returns the number of lots converted.
func (p *CorporateActionProcessor) ApplyMerger(ctx context.Context, oldID, newID string, exchangeRatio decimal.Decimal, effective date.Date, cashInLieuPerShare *Money) (int, error) {
	if !exchangeRatio.IsPositive() {
		return 0, fmt.Errorf("exchange ratio %v must be positive: %w", exchangeRatio, ErrInvalidRatio)
	}
	if cashInLieuPerShare != nil && cashInLieuPerShare.IsNegative() {
		return 0, fmt.Errorf("cash in lieu %v cannot be negative", *cashInLieuPerShare)
	}
	if oldID == newID {
		return 0, fmt.Errorf("merger of %s into itself", oldID)
	}
	if effective.IsZero() {
		return 0, fmt.Errorf("merger effective date is required")
	}
	var count int
	err := p.repo.Atomic(ctx, func(s Store) error {
		count = 0
		target, err := s.Securities().Get(ctx, newID)
		if err != nil {
			return fmt.Errorf("new security %q: %w", newID, err)
		}
		targets := make(map[string]Position) // by account
		err = openLotsOf(ctx, s, oldID, func(pos Position, l TaxLot) error {
			newPos, ok := targets[pos.AccountID]
			if !ok {
				if newPos, err = findOrAddPosition(ctx, s, pos.AccountID, pos.EntityID, target); err != nil {
					return err
				}
				targets[pos.AccountID] = newPos
			}
			old := l.remaining
			basis := l.RemainingCost()
			if cashInLieuPerShare != nil {
				basis = basis.Sub(cashInLieuPerShare.Mul(old))
				if basis.IsNegative() {
					return fmt.Errorf("cash in lieu %v exceeds the basis of lot %s", *cashInLieuPerShare, l.id)
				}
			}
			converted := newLot(newPos.ID, Acquisition{
				Date:      l.acquired,
				Quantity:  old.Scale(exchangeRatio),
				Type:      Merger,
				Covered:   l.covered,
				Reference: "merger of lot " + l.id,
			}, basis)
			converted.inheritWashSale(l, decimal.NewFromInt(1))
			l.Close(effective)
			if err := s.Lots().Update(ctx, l); err != nil {
				return err
			}
			if _, err := s.Lots().Add(ctx, converted); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			return err
		}
		for _, pos := range targets {
			if _, err := refreshPosition(ctx, s, pos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cannot apply merger of %s into %s: %w", oldID, newID, err)
	}
	p.log.Info().Str("old", oldID).Str("new", newID).Stringer("ratio", exchangeRatio).
		Stringer("effective", effective).Int("lots", count).Msg("merger applied")
	return count, nil
}

// ApplySymbolChange renames the security. Lots are not touched.
func (p *CorporateActionProcessor) ApplySymbolChange(ctx context.Context, securityID, newSymbol string, effective date.Date) error {
	if newSymbol == "" {
		return fmt.Errorf("new symbol is required")
	}
	var old string
	err := p.repo.Atomic(ctx, func(s Store) error {
		sec, err := s.Securities().Get(ctx, securityID)
		if err != nil {
			return fmt.Errorf("security %q: %w", securityID, err)
		}
		other, err := s.Securities().BySymbol(ctx, newSymbol)
		switch {
		case err == nil && other.ID != sec.ID:
			return fmt.Errorf("symbol %q is used by security %s: %w", newSymbol, other.ID, ErrDuplicate)
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
		old = sec.Symbol
		sec.Symbol = newSymbol
		return s.Securities().Update(ctx, sec)
	})
	if err != nil {
		return fmt.Errorf("cannot rename %s to %q: %w", securityID, newSymbol, err)
	}
	p.log.Info().Str("security", securityID).Str("from", old).Str("to", newSymbol).
		Stringer("effective", effective).Msg("symbol changed")
	return nil
}
