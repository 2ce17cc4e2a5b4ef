package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/taxlots"
	"github.com/patrickmn/go-cache"
)

const securityColumns = `id, symbol, cusip, isin, currency, price`

// securityStore reads through cache when it is not nil. changed is set on
// writes made inside a transaction, the cache is flushed on commit.
type securityStore struct {
	q       querier
	cache   *cache.Cache
	changed *bool
}

func scanSecurity(row scanner) (taxlots.Security, error) {
	var sec taxlots.Security
	var price string
	if err := row.Scan(&sec.ID, &sec.Symbol, &sec.CUSIP, &sec.ISIN, &sec.Currency, &price); err != nil {
		return taxlots.Security{}, err
	}
	var err error
	if sec.Price, err = taxlots.ParseMoney(price, sec.Currency); err != nil {
		return taxlots.Security{}, fmt.Errorf("security %s: price: %w", sec.ID, err)
	}
	return sec, nil
}

func (s securityStore) one(ctx context.Context, key, what, where string, arg string) (taxlots.Security, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(taxlots.Security), nil
		}
	}
	sec, err := scanSecurity(s.q.QueryRowContext(ctx, "SELECT "+securityColumns+" FROM securities WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return taxlots.Security{}, fmt.Errorf("security %s: %w", what, taxlots.ErrNotFound)
	}
	if err != nil {
		return taxlots.Security{}, err
	}
	if s.cache != nil {
		s.cache.SetDefault(key, sec)
	}
	return sec, nil
}

func (s securityStore) Get(ctx context.Context, id string) (taxlots.Security, error) {
	return s.one(ctx, "id:"+id, id, "id = ?", id)
}

func (s securityStore) BySymbol(ctx context.Context, symbol string) (taxlots.Security, error) {
	return s.one(ctx, "symbol:"+symbol, "with symbol "+symbol, "symbol = ?", symbol)
}

func (s securityStore) ByCUSIP(ctx context.Context, cusip string) (taxlots.Security, error) {
	if cusip == "" {
		return taxlots.Security{}, fmt.Errorf("security with empty CUSIP: %w", taxlots.ErrNotFound)
	}
	return s.one(ctx, "cusip:"+cusip, "with CUSIP "+cusip, "cusip = ?", cusip)
}

// written invalidates cached lookups after a write.
func (s securityStore) written() {
	if s.changed != nil {
		*s.changed = true
	}
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s securityStore) Add(ctx context.Context, sec taxlots.Security) error {
	_, err := s.q.ExecContext(ctx, "INSERT INTO securities ("+securityColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		sec.ID, sec.Symbol, sec.CUSIP, sec.ISIN, sec.Currency, sec.Price.Decimal().String())
	if isUnique(err) {
		return fmt.Errorf("security %s (%s): %w", sec.ID, sec.Symbol, taxlots.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("cannot insert security %s: %w", sec.ID, err)
	}
	s.written()
	return nil
}

func (s securityStore) Update(ctx context.Context, sec taxlots.Security) error {
	res, err := s.q.ExecContext(ctx, "UPDATE securities SET symbol = ?, cusip = ?, isin = ?, currency = ?, price = ? WHERE id = ?",
		sec.Symbol, sec.CUSIP, sec.ISIN, sec.Currency, sec.Price.Decimal().String(), sec.ID)
	if isUnique(err) {
		return fmt.Errorf("security %s (%s): %w", sec.ID, sec.Symbol, taxlots.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("cannot update security %s: %w", sec.ID, err)
	}
	if err := mustAffect(res, "security", sec.ID); err != nil {
		return err
	}
	s.written()
	return nil
}
