package entity

import "time"

// BidEntry is one element of a product's bid history.
type BidEntry struct {
	Username string    `json:"username"`
	Price    float64   `json:"price"`
	PlacedAt time.Time `json:"placed_at"`
}

// BidEvent is published once a bid has been committed.
type BidEvent struct {
	EventID     string
	ProductID   string
	Username    string
	Price       float64
	PreviousBid float64
	PlacedAt    time.Time
}
