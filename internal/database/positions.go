package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/models"
)

// InsertOpen opens a new position on coinID at price and returns the stored row
func (db *DB) InsertOpen(ctx context.Context, ownerID, coinID, ticker string, side models.Side, price decimal.Decimal) (*models.Position, error) {
	c, release, err := db.acquire(ctx)
	if err != nil {
		return nil, &models.StoreError{Op: "acquire connection", Err: err}
	}
	defer release()

	query := `
		INSERT INTO positions (owner_id, coin_id, ticker, side, open_price, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	p := &models.Position{
		OwnerID:   ownerID,
		CoinID:    coinID,
		Ticker:    ticker,
		Side:      side,
		OpenPrice: price,
		OpenedAt:  time.Now().UTC(),
	}
	err = c.QueryRowContext(ctx, query,
		p.OwnerID, p.CoinID, p.Ticker, string(p.Side), p.OpenPrice, p.OpenedAt,
	).Scan(&p.ID)
	if err != nil {
		return nil, &models.StoreError{Op: "create position", Err: err}
	}
	return p, nil
}

// ClosePosition sets the close price and close time of an open position and
// returns the close time. Closing an unknown or already closed id fails.
func (db *DB) ClosePosition(ctx context.Context, id int, closePrice decimal.Decimal) (time.Time, error) {
	c, release, err := db.acquire(ctx)
	if err != nil {
		return time.Time{}, &models.StoreError{Op: "acquire connection", Err: err}
	}
	defer release()

	query := `
		UPDATE positions SET close_price = $2, closed_at = $3
		WHERE id = $1 AND closed_at IS NULL
	`
	closedAt := time.Now().UTC()
	result, err := c.ExecContext(ctx, query, id, closePrice, closedAt)
	if err != nil {
		return time.Time{}, &models.StoreError{Op: "close position", Err: err}
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return time.Time{}, &models.StoreError{
			Op:  "close position",
			Err: fmt.Errorf("position %d not found or already closed", id),
		}
	}
	return closedAt, nil
}

// ListByOwner retrieves every position of a user, oldest first
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]*models.Position, error) {
	c, release, err := db.acquire(ctx)
	if err != nil {
		return nil, &models.StoreError{Op: "acquire connection", Err: err}
	}
	defer release()

	query := `
		SELECT id, owner_id, coin_id, ticker, side, open_price, close_price, opened_at, closed_at
		FROM positions
		WHERE owner_id = $1
		ORDER BY opened_at ASC, id ASC
	`
	rows, err := c.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, &models.StoreError{Op: "get positions", Err: err}
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, &models.StoreError{Op: "scan position", Err: err}
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "iterate positions", Err: err}
	}

	return positions, nil
}

func scanPosition(rows *sql.Rows) (*models.Position, error) {
	var p models.Position
	var side string
	var closedAt sql.NullTime

	err := rows.Scan(
		&p.ID, &p.OwnerID, &p.CoinID, &p.Ticker, &side, &p.OpenPrice, &p.ClosePrice, &p.OpenedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Side = models.Side(side)
	if p.Side != models.SideLong && p.Side != models.SideShort {
		return nil, fmt.Errorf("position %d has invalid side %q", p.ID, side)
	}
	if p.ClosePrice.Valid != closedAt.Valid {
		return nil, fmt.Errorf("position %d has inconsistent close state", p.ID)
	}
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return &p, nil
}
