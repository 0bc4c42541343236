package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
)

const mysqlDuplicateEntry = 1062

type BidArchiveRepository struct {
	db *sql.DB
}

// NewBidArchiveRepository constructs a bid archive backed by MySQL.
func NewBidArchiveRepository(db *sql.DB) *BidArchiveRepository {
	return &BidArchiveRepository{db: db}
}

// Insert archives an accepted bid. A replayed event yields ErrDuplicateEvent.
func (r *BidArchiveRepository) Insert(ctx context.Context, event entity.BidEvent) error {
	const query = `
		INSERT INTO bid_history (event_id, product_id, username, price, previous_bid, placed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, event.EventID, event.ProductID, event.Username, event.Price, event.PreviousBid, event.PlacedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, event.EventID)
		}
		return fmt.Errorf("insert bid event %s: %w", event.EventID, err)
	}
	return nil
}

// CountByProduct returns how many bids were archived for a product.
func (r *BidArchiveRepository) CountByProduct(ctx context.Context, productID string) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM bid_history
		WHERE product_id = ?
	`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archived bids of %s: %w", productID, err)
	}
	return count, nil
}
