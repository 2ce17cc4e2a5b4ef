// Package memstore is an in-memory taxlots.Repository, for tests and short lived tools.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/date"
)

// state is the whole content of the repository.
type state struct {
	securities map[string]taxlots.Security
	positions  map[string]taxlots.Position
	lots       map[string]taxlots.TaxLot
	seq        int64 // last lot sequence
}

func (s *state) clone() *state {
	return &state{
		securities: maps.Clone(s.securities),
		positions:  maps.Clone(s.positions),
		lots:       maps.Clone(s.lots),
		seq:        s.seq,
	}
}

// Repository keeps everything in maps guarded by a mutex.
//
// Atomic runs on a copy of the state that replaces the current one only when
// the unit of work succeeds.
type Repository struct {
	mu sync.Mutex
	st *state
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{st: &state{
		securities: make(map[string]taxlots.Security),
		positions:  make(map[string]taxlots.Position),
		lots:       make(map[string]taxlots.TaxLot),
	}}
}

var _ taxlots.Repository = (*Repository)(nil)

// view gives access to either the committed state (tx == nil, under lock) or to
// the working copy of a unit of work.
type view struct {
	r  *Repository
	tx *state
}

func (v view) do(fn func(*state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.r.mu.Lock()
	defer v.r.mu.Unlock()
	return fn(v.r.st)
}

func (v view) Lots() taxlots.LotStore                { return lotStore{v} }
func (v view) Positions() taxlots.PositionStore      { return positionStore{v} }
func (v view) Securities() taxlots.SecurityDirectory { return securityStore{v} }

func (r *Repository) Lots() taxlots.LotStore                { return view{r: r}.Lots() }
func (r *Repository) Positions() taxlots.PositionStore      { return view{r: r}.Positions() }
func (r *Repository) Securities() taxlots.SecurityDirectory { return view{r: r}.Securities() }

// Atomic runs fn on a working copy and commits it if fn returns nil.
func (r *Repository) Atomic(ctx context.Context, fn func(taxlots.Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := r.st.clone()
	if err := fn(view{r: r, tx: work}); err != nil {
		return err
	}
	r.st = work
	return nil
}

/* ---- Lot store ---- */

type lotStore struct{ v view }

func (s lotStore) Add(_ context.Context, lot taxlots.TaxLot) (taxlots.TaxLot, error) {
	err := s.v.do(func(st *state) error {
		if _, ok := st.lots[lot.ID()]; ok {
			return fmt.Errorf("lot %s: %w", lot.ID(), taxlots.ErrDuplicate)
		}
		st.seq++
		rec := lot.Record()
		rec.Seq = st.seq
		var err error
		if lot, err = taxlots.RestoreLot(rec); err != nil {
			return err
		}
		st.lots[lot.ID()] = lot
		return nil
	})
	return lot, err
}

func (s lotStore) Get(_ context.Context, id string) (lot taxlots.TaxLot, err error) {
	err = s.v.do(func(st *state) error {
		var ok bool
		if lot, ok = st.lots[id]; !ok {
			return fmt.Errorf("lot %s: %w", id, taxlots.ErrNotFound)
		}
		return nil
	})
	return lot, err
}

func (s lotStore) Update(_ context.Context, lot taxlots.TaxLot) error {
	return s.v.do(func(st *state) error {
		if _, ok := st.lots[lot.ID()]; !ok {
			return fmt.Errorf("lot %s: %w", lot.ID(), taxlots.ErrNotFound)
		}
		st.lots[lot.ID()] = lot
		return nil
	})
}

// filter returns the lots of the position matching keep, in creation order.
func (s lotStore) filter(positionID string, keep func(taxlots.TaxLot) bool) (lots []taxlots.TaxLot, err error) {
	err = s.v.do(func(st *state) error {
		for _, l := range st.lots {
			if l.PositionID() == positionID && keep(l) {
				lots = append(lots, l)
			}
		}
		return nil
	})
	slices.SortFunc(lots, func(a, b taxlots.TaxLot) int { return cmp.Compare(a.Seq(), b.Seq()) })
	return lots, err
}

func (s lotStore) ListByPosition(_ context.Context, positionID string) ([]taxlots.TaxLot, error) {
	return s.filter(positionID, func(taxlots.TaxLot) bool { return true })
}

func (s lotStore) ListOpenByPosition(_ context.Context, positionID string) ([]taxlots.TaxLot, error) {
	return s.filter(positionID, taxlots.TaxLot.IsOpen)
}

func (s lotStore) ListByAcquisitionRange(_ context.Context, positionID string, r date.Range) ([]taxlots.TaxLot, error) {
	return s.filter(positionID, func(l taxlots.TaxLot) bool { return r.Contains(l.AcquisitionDate()) })
}

func (s lotStore) ListInWashSaleWindow(ctx context.Context, positionID string, saleDate date.Date, days int) ([]taxlots.TaxLot, error) {
	return s.ListByAcquisitionRange(ctx, positionID, date.Around(saleDate, days))
}

/* ---- Position store ---- */

type positionStore struct{ v view }

func (s positionStore) Get(_ context.Context, id string) (p taxlots.Position, err error) {
	err = s.v.do(func(st *state) error {
		var ok bool
		if p, ok = st.positions[id]; !ok {
			return fmt.Errorf("position %s: %w", id, taxlots.ErrNotFound)
		}
		return nil
	})
	return p, err
}

func (s positionStore) Find(_ context.Context, accountID, securityID string) (p taxlots.Position, err error) {
	err = s.v.do(func(st *state) error {
		for _, q := range st.positions {
			if q.AccountID == accountID && q.SecurityID == securityID {
				p = q
				return nil
			}
		}
		return fmt.Errorf("position of %s in %s: %w", securityID, accountID, taxlots.ErrNotFound)
	})
	return p, err
}

func (s positionStore) Add(_ context.Context, p taxlots.Position) error {
	return s.v.do(func(st *state) error {
		if _, ok := st.positions[p.ID]; ok {
			return fmt.Errorf("position %s: %w", p.ID, taxlots.ErrDuplicate)
		}
		for _, q := range st.positions {
			if q.AccountID == p.AccountID && q.SecurityID == p.SecurityID {
				return fmt.Errorf("position of %s in %s: %w", p.SecurityID, p.AccountID, taxlots.ErrDuplicate)
			}
		}
		st.positions[p.ID] = p
		return nil
	})
}

func (s positionStore) Update(_ context.Context, p taxlots.Position) error {
	return s.v.do(func(st *state) error {
		if _, ok := st.positions[p.ID]; !ok {
			return fmt.Errorf("position %s: %w", p.ID, taxlots.ErrNotFound)
		}
		st.positions[p.ID] = p
		return nil
	})
}

func (s positionStore) filter(keep func(taxlots.Position) bool) (list []taxlots.Position, err error) {
	err = s.v.do(func(st *state) error {
		for _, p := range st.positions {
			if keep(p) {
				list = append(list, p)
			}
		}
		return nil
	})
	slices.SortFunc(list, func(a, b taxlots.Position) int {
		return cmp.Or(cmp.Compare(a.AccountID, b.AccountID), cmp.Compare(a.SecurityID, b.SecurityID))
	})
	return list, err
}

func (s positionStore) ListByAccount(_ context.Context, accountID string) ([]taxlots.Position, error) {
	return s.filter(func(p taxlots.Position) bool { return p.AccountID == accountID })
}

func (s positionStore) ListBySecurity(_ context.Context, securityID string) ([]taxlots.Position, error) {
	return s.filter(func(p taxlots.Position) bool { return p.SecurityID == securityID })
}

func (s positionStore) ListByEntity(_ context.Context, entityID string) ([]taxlots.Position, error) {
	return s.filter(func(p taxlots.Position) bool { return p.EntityID == entityID })
}

/* ---- Security directory ---- */

type securityStore struct{ v view }

func (s securityStore) Get(_ context.Context, id string) (sec taxlots.Security, err error) {
	err = s.v.do(func(st *state) error {
		var ok bool
		if sec, ok = st.securities[id]; !ok {
			return fmt.Errorf("security %s: %w", id, taxlots.ErrNotFound)
		}
		return nil
	})
	return sec, err
}

func (s securityStore) find(what, key string, match func(taxlots.Security) bool) (sec taxlots.Security, err error) {
	err = s.v.do(func(st *state) error {
		for _, x := range st.securities {
			if match(x) {
				sec = x
				return nil
			}
		}
		return fmt.Errorf("security with %s %q: %w", what, key, taxlots.ErrNotFound)
	})
	return sec, err
}

func (s securityStore) BySymbol(_ context.Context, symbol string) (taxlots.Security, error) {
	return s.find("symbol", symbol, func(x taxlots.Security) bool { return x.Symbol == symbol })
}

func (s securityStore) ByCUSIP(_ context.Context, cusip string) (taxlots.Security, error) {
	return s.find("CUSIP", cusip, func(x taxlots.Security) bool { return cusip != "" && x.CUSIP == cusip })
}

// conflict checks the unique keys of sec against the other securities.
func conflict(st *state, sec taxlots.Security) error {
	for _, x := range st.securities {
		if x.ID == sec.ID {
			continue
		}
		if x.Symbol == sec.Symbol {
			return fmt.Errorf("symbol %q: %w", sec.Symbol, taxlots.ErrDuplicate)
		}
		if sec.CUSIP != "" && x.CUSIP == sec.CUSIP {
			return fmt.Errorf("CUSIP %q: %w", sec.CUSIP, taxlots.ErrDuplicate)
		}
	}
	return nil
}

func (s securityStore) Add(_ context.Context, sec taxlots.Security) error {
	return s.v.do(func(st *state) error {
		if _, ok := st.securities[sec.ID]; ok {
			return fmt.Errorf("security %s: %w", sec.ID, taxlots.ErrDuplicate)
		}
		if err := conflict(st, sec); err != nil {
			return err
		}
		st.securities[sec.ID] = sec
		return nil
	})
}

func (s securityStore) Update(_ context.Context, sec taxlots.Security) error {
	return s.v.do(func(st *state) error {
		if _, ok := st.securities[sec.ID]; !ok {
			return fmt.Errorf("security %s: %w", sec.ID, taxlots.ErrNotFound)
		}
		if err := conflict(st, sec); err != nil {
			return err
		}
		st.securities[sec.ID] = sec
		return nil
	})
}
