package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/taxlots"
)

const positionColumns = `id, account_id, security_id, entity_id, quantity, cost_basis, market_value, currency, updated_at`

type positionStore struct{ q querier }

func scanPosition(row scanner) (taxlots.Position, error) {
	var (
		p                                       taxlots.Position
		quantity, basis, value, currency, stamp string
	)
	err := row.Scan(&p.ID, &p.AccountID, &p.SecurityID, &p.EntityID, &quantity, &basis, &value, &currency, &stamp)
	if err != nil {
		return taxlots.Position{}, err
	}
	if p.Quantity, err = taxlots.ParseQuantity(quantity); err != nil {
		return taxlots.Position{}, fmt.Errorf("position %s: quantity: %w", p.ID, err)
	}
	if p.CostBasis, err = taxlots.ParseMoney(basis, currency); err != nil {
		return taxlots.Position{}, fmt.Errorf("position %s: cost basis: %w", p.ID, err)
	}
	if p.MarketValue, err = taxlots.ParseMoney(value, currency); err != nil {
		return taxlots.Position{}, fmt.Errorf("position %s: market value: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return taxlots.Position{}, fmt.Errorf("position %s: updated at: %w", p.ID, err)
	}
	return p, nil
}

func (s positionStore) one(ctx context.Context, what string, where string, args ...any) (taxlots.Position, error) {
	p, err := scanPosition(s.q.QueryRowContext(ctx, "SELECT "+positionColumns+" FROM positions WHERE "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return taxlots.Position{}, fmt.Errorf("position %s: %w", what, taxlots.ErrNotFound)
	}
	return p, err
}

func (s positionStore) list(ctx context.Context, where string, args ...any) ([]taxlots.Position, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+positionColumns+" FROM positions WHERE "+where+" ORDER BY account_id, security_id", args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list positions: %w", err)
	}
	defer rows.Close()
	var list []taxlots.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s positionStore) Get(ctx context.Context, id string) (taxlots.Position, error) {
	return s.one(ctx, id, "id = ?", id)
}

func (s positionStore) Find(ctx context.Context, accountID, securityID string) (taxlots.Position, error) {
	return s.one(ctx, "of "+securityID+" in "+accountID, "account_id = ? AND security_id = ?", accountID, securityID)
}

// currencyOf returns the currency of the position amounts.
func currencyOf(p taxlots.Position) string {
	if c := p.CostBasis.Currency(); c != "" {
		return c
	}
	return p.MarketValue.Currency()
}

func (s positionStore) Add(ctx context.Context, p taxlots.Position) error {
	_, err := s.q.ExecContext(ctx, "INSERT INTO positions ("+positionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.AccountID, p.SecurityID, p.EntityID, p.Quantity.String(), p.CostBasis.Decimal().String(),
		p.MarketValue.Decimal().String(), currencyOf(p), p.UpdatedAt.Format(time.RFC3339Nano))
	if isUnique(err) {
		return fmt.Errorf("position of %s in %s: %w", p.SecurityID, p.AccountID, taxlots.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("cannot insert position %s: %w", p.ID, err)
	}
	return nil
}

func (s positionStore) Update(ctx context.Context, p taxlots.Position) error {
	res, err := s.q.ExecContext(ctx, `UPDATE positions SET entity_id = ?, quantity = ?, cost_basis = ?,
    market_value = ?, currency = ?, updated_at = ? WHERE id = ?`,
		p.EntityID, p.Quantity.String(), p.CostBasis.Decimal().String(), p.MarketValue.Decimal().String(),
		currencyOf(p), p.UpdatedAt.Format(time.RFC3339Nano), p.ID)
	if err != nil {
		return fmt.Errorf("cannot update position %s: %w", p.ID, err)
	}
	return mustAffect(res, "position", p.ID)
}

func (s positionStore) ListByAccount(ctx context.Context, accountID string) ([]taxlots.Position, error) {
	return s.list(ctx, "account_id = ?", accountID)
}

func (s positionStore) ListBySecurity(ctx context.Context, securityID string) ([]taxlots.Position, error) {
	return s.list(ctx, "security_id = ?", securityID)
}

func (s positionStore) ListByEntity(ctx context.Context, entityID string) ([]taxlots.Position, error) {
	return s.list(ctx, "entity_id = ?", entityID)
}
