package entity

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"desc"`
	Owner       string    `json:"username"`
	Views       int64     `json:"views"`
	HighestBid  float64   `json:"highest_bid"`
	EndingAt    time.Time `json:"ending_at"`
}

// Ended reports whether bidding on the product is closed at t.
func (p *Product) Ended(t time.Time) bool {
	return t.After(p.EndingAt)
}

type NewProduct struct {
	Name        string
	Description string
	Owner       string
	EndingAt    time.Time
}

// ProductUpdate carries the fields to overwrite; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	EndingAt    *time.Time
}

// Empty reports whether the update would write nothing.
func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.EndingAt == nil
}
