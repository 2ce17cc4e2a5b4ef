package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/date"
)

const lotColumns = `seq, id, position_id, acquisition_date, original_quantity, remaining_quantity,
    total_cost, currency, acquisition_type, disposition_date, is_covered, wash_sale_disallowed,
    wash_sale_adjustment, reference, created_at`

type lotStore struct{ q querier }

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanLot(row scanner) (taxlots.TaxLot, error) {
	var (
		r                                    taxlots.LotRecord
		acquired, original, remaining, total string
		currency, kind, disposed, adjustment string
		created                              string
	)
	err := row.Scan(&r.Seq, &r.ID, &r.PositionID, &acquired, &original, &remaining,
		&total, &currency, &kind, &disposed, &r.Covered, &r.WashSaleDisallowed,
		&adjustment, &r.Reference, &created)
	if err != nil {
		return taxlots.TaxLot{}, err
	}
	if r.AcquisitionDate, err = date.Parse(acquired); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: %w", r.ID, err)
	}
	if disposed != "" {
		if r.DispositionDate, err = date.Parse(disposed); err != nil {
			return taxlots.TaxLot{}, fmt.Errorf("lot %s: %w", r.ID, err)
		}
	}
	if r.OriginalQuantity, err = taxlots.ParseQuantity(original); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: original quantity: %w", r.ID, err)
	}
	if r.RemainingQuantity, err = taxlots.ParseQuantity(remaining); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: remaining quantity: %w", r.ID, err)
	}
	if r.TotalCost, err = taxlots.ParseMoney(total, currency); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: total cost: %w", r.ID, err)
	}
	if r.WashSaleAdjustment, err = taxlots.ParseMoney(adjustment, currency); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: wash sale adjustment: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: created at: %w", r.ID, err)
	}
	r.AcquisitionType = taxlots.AcquisitionType(kind)
	return taxlots.RestoreLot(r)
}

func (s lotStore) list(ctx context.Context, where string, args ...any) ([]taxlots.TaxLot, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+lotColumns+" FROM lots WHERE "+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list lots: %w", err)
	}
	defer rows.Close()
	var lots []taxlots.TaxLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func (s lotStore) Add(ctx context.Context, lot taxlots.TaxLot) (taxlots.TaxLot, error) {
	r := lot.Record()
	res, err := s.q.ExecContext(ctx, `INSERT INTO lots (id, position_id, acquisition_date, original_quantity,
    remaining_quantity, is_open, total_cost, currency, acquisition_type, disposition_date, is_covered,
    wash_sale_disallowed, wash_sale_adjustment, reference, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PositionID, r.AcquisitionDate.String(), r.OriginalQuantity.String(),
		r.RemainingQuantity.String(), lot.IsOpen(), r.TotalCost.Decimal().String(), r.TotalCost.Currency(),
		string(r.AcquisitionType), r.DispositionDate.String(), r.Covered,
		r.WashSaleDisallowed, r.WashSaleAdjustment.Decimal().String(), r.Reference,
		r.CreatedAt.Format(time.RFC3339Nano))
	if isUnique(err) {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: %w", r.ID, taxlots.ErrDuplicate)
	}
	if err != nil {
		return taxlots.TaxLot{}, fmt.Errorf("cannot insert lot %s: %w", r.ID, err)
	}
	if r.Seq, err = res.LastInsertId(); err != nil {
		return taxlots.TaxLot{}, err
	}
	return taxlots.RestoreLot(r)
}

func (s lotStore) Get(ctx context.Context, id string) (taxlots.TaxLot, error) {
	l, err := scanLot(s.q.QueryRowContext(ctx, "SELECT "+lotColumns+" FROM lots WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return taxlots.TaxLot{}, fmt.Errorf("lot %s: %w", id, taxlots.ErrNotFound)
	}
	return l, err
}

func (s lotStore) Update(ctx context.Context, lot taxlots.TaxLot) error {
	r := lot.Record()
	res, err := s.q.ExecContext(ctx, `UPDATE lots SET original_quantity = ?, remaining_quantity = ?, is_open = ?,
    total_cost = ?, disposition_date = ?, wash_sale_disallowed = ?, wash_sale_adjustment = ?
    WHERE id = ?`,
		r.OriginalQuantity.String(), r.RemainingQuantity.String(), lot.IsOpen(),
		r.TotalCost.Decimal().String(), r.DispositionDate.String(), r.WashSaleDisallowed,
		r.WashSaleAdjustment.Decimal().String(), r.ID)
	if err != nil {
		return fmt.Errorf("cannot update lot %s: %w", r.ID, err)
	}
	return mustAffect(res, "lot", r.ID)
}

func (s lotStore) ListByPosition(ctx context.Context, positionID string) ([]taxlots.TaxLot, error) {
	return s.list(ctx, "position_id = ?", positionID)
}

func (s lotStore) ListOpenByPosition(ctx context.Context, positionID string) ([]taxlots.TaxLot, error) {
	return s.list(ctx, "position_id = ? AND is_open", positionID)
}

// ISO dates sort lexicographically, so ranges are plain string comparisons.
func (s lotStore) ListByAcquisitionRange(ctx context.Context, positionID string, r date.Range) ([]taxlots.TaxLot, error) {
	return s.list(ctx, "position_id = ? AND acquisition_date BETWEEN ? AND ?", positionID, r.From.String(), r.To.String())
}

func (s lotStore) ListInWashSaleWindow(ctx context.Context, positionID string, saleDate date.Date, days int) ([]taxlots.TaxLot, error) {
	return s.ListByAcquisitionRange(ctx, positionID, date.Around(saleDate, days))
}
