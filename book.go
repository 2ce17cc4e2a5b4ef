package taxlots

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/taxlots/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Book is the entry point used by ingestion and reporting code: it records
// acquisitions, executes sales and applies corporate actions against a
// Repository. Every read-then-write operation runs in one Atomic unit.
type Book struct {
	repo    Repository
	log     zerolog.Logger
	actions *CorporateActionProcessor
}

// NewBook returns a Book on the repository. Use zerolog.Nop() to disable logs.
func NewBook(repo Repository, log zerolog.Logger) *Book {
	return &Book{
		repo:    repo,
		log:     log,
		actions: NewCorporateActionProcessor(repo, log),
	}
}

// Sale is a request to dispose of shares of a position.
type Sale struct {
	PositionID string
	Quantity   Quantity
	Proceeds   Money // total proceeds of the sale
	Date       date.Date
	Method     LotSelection
	LotIDs     []string // for SpecificID only
}

// AddSecurity registers a security in the directory.
func (b *Book) AddSecurity(ctx context.Context, sec Security) error {
	return b.repo.Securities().Add(ctx, sec)
}

// Security returns the security with this id.
func (b *Book) Security(ctx context.Context, id string) (Security, error) {
	return b.repo.Securities().Get(ctx, id)
}

// LookupSecurity finds a security by symbol, then by CUSIP.
func (b *Book) LookupSecurity(ctx context.Context, symbolOrCUSIP string) (Security, error) {
	sec, err := b.repo.Securities().BySymbol(ctx, symbolOrCUSIP)
	if errors.Is(err, ErrNotFound) {
		sec, err = b.repo.Securities().ByCUSIP(ctx, symbolOrCUSIP)
	}
	if err != nil {
		return Security{}, fmt.Errorf("security %q: %w", symbolOrCUSIP, err)
	}
	return sec, nil
}

// OpenPosition returns the position of the security in the account, creating it if needed.
func (b *Book) OpenPosition(ctx context.Context, accountID, entityID, securityID string) (Position, error) {
	var pos Position
	err := b.repo.Atomic(ctx, func(s Store) error {
		sec, err := s.Securities().Get(ctx, securityID)
		if err != nil {
			return fmt.Errorf("security %q: %w", securityID, err)
		}
		pos, err = findOrAddPosition(ctx, s, accountID, entityID, sec)
		return err
	})
	return pos, err
}

// Acquire records a new lot in the position of a.SecurityID in a.AccountID.
func (b *Book) Acquire(ctx context.Context, a Acquisition) (TaxLot, error) {
	var lot TaxLot
	err := b.repo.Atomic(ctx, func(s Store) error {
		sec, err := s.Securities().Get(ctx, a.SecurityID)
		if err != nil {
			return fmt.Errorf("security %q: %w", a.SecurityID, err)
		}
		if c := a.CostPerShare.Currency(); c != "" && c != sec.Currency {
			return fmt.Errorf("cost in %s for a security traded in %s", c, sec.Currency)
		}
		a.CostPerShare = M(a.CostPerShare.Decimal(), sec.Currency)
		pos, err := findOrAddPosition(ctx, s, a.AccountID, a.EntityID, sec)
		if err != nil {
			return err
		}
		if lot, err = NewTaxLot(pos.ID, a); err != nil {
			return err
		}
		if lot, err = s.Lots().Add(ctx, lot); err != nil {
			return err
		}
		_, err = refreshPosition(ctx, s, pos)
		return err
	})
	if err != nil {
		return TaxLot{}, fmt.Errorf("cannot acquire %v %s: %w", a.Quantity, a.SecurityID, err)
	}
	b.log.Info().Str("position", lot.PositionID()).Str("lot", lot.ID()).Stringer("quantity", lot.OriginalQuantity()).
		Stringer("acquired", lot.AcquisitionDate()).Msg("lot acquired")
	return lot, nil
}

// ExecuteSale selects the lots for the sale, computes the dispositions and
// persists the reduced lots. Nothing is written when any step fails.
//
// Lots acquired after the sale date are not eligible.
func (b *Book) ExecuteSale(ctx context.Context, sale Sale) ([]Disposition, error) {
	var dispositions []Disposition
	err := b.repo.Atomic(ctx, func(s Store) error {
		pos, err := s.Positions().Get(ctx, sale.PositionID)
		if err != nil {
			return fmt.Errorf("position %q: %w", sale.PositionID, err)
		}
		open, err := s.Lots().ListOpenByPosition(ctx, pos.ID)
		if err != nil {
			return err
		}
		open = slices.DeleteFunc(open, func(l TaxLot) bool { return l.acquired.After(sale.Date) })

		plan, err := SelectForSale(open, sale.Quantity, sale.Method, sale.LotIDs)
		if err != nil {
			return err
		}
		var lots []TaxLot
		if dispositions, lots, err = Dispose(plan, sale.Proceeds, sale.Date); err != nil {
			return err
		}
		for _, l := range lots {
			if err := s.Lots().Update(ctx, l); err != nil {
				return err
			}
		}
		_, err = refreshPosition(ctx, s, pos)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cannot sell %v shares of position %s: %w", sale.Quantity, sale.PositionID, err)
	}
	summary := Summarize(dispositions)
	b.log.Info().Str("position", sale.PositionID).Stringer("method", sale.Method).Stringer("quantity", sale.Quantity).
		Int("lots", len(dispositions)).Stringer("gain", summary.RealizedGain).Msg("sale executed")
	return dispositions, nil
}

// FindWashSaleCandidates returns the lots of the position acquired within 30
// days of a sale that realized 'loss' (a positive amount). See WashSaleDetector.
func (b *Book) FindWashSaleCandidates(ctx context.Context, positionID string, saleDate date.Date, loss Money) ([]TaxLot, error) {
	if _, err := b.repo.Positions().Get(ctx, positionID); err != nil {
		return nil, fmt.Errorf("position %q: %w", positionID, err)
	}
	return WashSaleDetector{Lots: b.repo.Lots()}.FindCandidates(ctx, positionID, saleDate, loss)
}

// MarkWashSale disallows 'disallowed' loss and adds it to the basis of the replacement lot.
func (b *Book) MarkWashSale(ctx context.Context, lotID string, disallowed Money) error {
	err := b.repo.Atomic(ctx, func(s Store) error {
		l, err := s.Lots().Get(ctx, lotID)
		if err != nil {
			return fmt.Errorf("lot %q: %w", lotID, err)
		}
		if c := disallowed.Currency(); c != "" && c != l.Currency() {
			return fmt.Errorf("disallowed loss in %s for a lot in %s", c, l.Currency())
		}
		if err := l.MarkWashSale(disallowed); err != nil {
			return err
		}
		return s.Lots().Update(ctx, l)
	})
	if err != nil {
		return fmt.Errorf("cannot mark wash sale on lot %s: %w", lotID, err)
	}
	b.log.Info().Str("lot", lotID).Stringer("disallowed", disallowed).Msg("wash sale marked")
	return nil
}

// ApplySplit see CorporateActionProcessor.ApplySplit.
func (b *Book) ApplySplit(ctx context.Context, securityID string, numerator, denominator int64, effective date.Date) (int, error) {
	return b.actions.ApplySplit(ctx, securityID, numerator, denominator, effective)
}

// ApplySpinoff see CorporateActionProcessor.ApplySpinoff.
func (b *Book) ApplySpinoff(ctx context.Context, parentID, childID string, allocationRatio decimal.Decimal, effective date.Date) (int, error) {
	return b.actions.ApplySpinoff(ctx, parentID, childID, allocationRatio, effective)
}

// ApplyMerger see CorporateActionProcessor.ApplyMerger.
func (b *Book) ApplyMerger(ctx context.Context, oldID, newID string, exchangeRatio decimal.Decimal, effective date.Date, cashInLieuPerShare *Money) (int, error) {
	return b.actions.ApplyMerger(ctx, oldID, newID, exchangeRatio, effective, cashInLieuPerShare)
}

// ApplySymbolChange see CorporateActionProcessor.ApplySymbolChange.
func (b *Book) ApplySymbolChange(ctx context.Context, securityID, newSymbol string, effective date.Date) error {
	return b.actions.ApplySymbolChange(ctx, securityID, newSymbol, effective)
}

// UpdatePrice sets the last price of the security and revalues its positions.
func (b *Book) UpdatePrice(ctx context.Context, securityID string, price Money) error {
	return b.repo.Atomic(ctx, func(s Store) error {
		sec, err := s.Securities().Get(ctx, securityID)
		if err != nil {
			return fmt.Errorf("security %q: %w", securityID, err)
		}
		if c := price.Currency(); c != "" && c != sec.Currency {
			return fmt.Errorf("price in %s for a security traded in %s", c, sec.Currency)
		}
		sec.Price = M(price.Decimal(), sec.Currency)
		if err := s.Securities().Update(ctx, sec); err != nil {
			return err
		}
		positions, err := s.Positions().ListBySecurity(ctx, securityID)
		if err != nil {
			return err
		}
		for _, pos := range positions {
			if _, err := refreshPosition(ctx, s, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

// Position returns the position with this id.
func (b *Book) Position(ctx context.Context, id string) (Position, error) {
	return b.repo.Positions().Get(ctx, id)
}

// FindPosition returns the position of the security in the account.
func (b *Book) FindPosition(ctx context.Context, accountID, securityID string) (Position, error) {
	return b.repo.Positions().Find(ctx, accountID, securityID)
}

// AccountPositions lists the positions of an account.
func (b *Book) AccountPositions(ctx context.Context, accountID string) ([]Position, error) {
	return b.repo.Positions().ListByAccount(ctx, accountID)
}

// EntityPositions lists the positions owned by an entity across accounts.
func (b *Book) EntityPositions(ctx context.Context, entityID string) ([]Position, error) {
	return b.repo.Positions().ListByEntity(ctx, entityID)
}

// Lots lists every lot of the position, open and closed.
func (b *Book) Lots(ctx context.Context, positionID string) ([]TaxLot, error) {
	return b.repo.Lots().ListByPosition(ctx, positionID)
}

// OpenLots lists the lots of the position with shares remaining.
func (b *Book) OpenLots(ctx context.Context, positionID string) ([]TaxLot, error) {
	return b.repo.Lots().ListOpenByPosition(ctx, positionID)
}

// LotsAcquired lists the lots of the position acquired within r.
func (b *Book) LotsAcquired(ctx context.Context, positionID string, r date.Range) ([]TaxLot, error) {
	return b.repo.Lots().ListByAcquisitionRange(ctx, positionID, r)
}

// ClosedLots lists the fully disposed lots of the position whose last
// disposition happened during the tax year.
func (b *Book) ClosedLots(ctx context.Context, positionID string, taxYear int) ([]TaxLot, error) {
	lots, err := b.repo.Lots().ListByPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	year := date.Year(taxYear)
	return slices.DeleteFunc(lots, func(l TaxLot) bool {
		return !l.IsFullyDisposed() || !year.Contains(l.disposed)
	}), nil
}

// findOrAddPosition returns the position of the security in the account, creating it if needed.
func findOrAddPosition(ctx context.Context, s Store, accountID, entityID string, sec Security) (Position, error) {
	pos, err := s.Positions().Find(ctx, accountID, sec.ID)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Position{}, err
	}
	if pos, err = NewPosition(accountID, entityID, sec); err != nil {
		return Position{}, err
	}
	if err := s.Positions().Add(ctx, pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// refreshPosition recomputes and saves the cached snapshot of the position.
func refreshPosition(ctx context.Context, s Store, pos Position) (Position, error) {
	sec, err := s.Securities().Get(ctx, pos.SecurityID)
	if err != nil {
		return Position{}, fmt.Errorf("security %q: %w", pos.SecurityID, err)
	}
	lots, err := s.Lots().ListOpenByPosition(ctx, pos.ID)
	if err != nil {
		return Position{}, err
	}
	pos.Recompute(lots, sec.Price)
	if err := s.Positions().Update(ctx, pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}
