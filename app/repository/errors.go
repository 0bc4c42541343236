package repository

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrSearchIndexExists   = errors.New("search index already exists")
	ErrSearchIndexNotFound = errors.New("search index not found")
	ErrDuplicateEvent      = errors.New("bid event already archived")
)

// Derived views maintained next to the product record.
const (
	ViewEndingSoonest = "ending_soonest"
	ViewPopularity    = "popularity"
	ViewUniqueViews   = "unique_views"
)

// IndexMaintenanceError reports a derived view write that failed after the
// primary record was stored. It is logged, never returned to callers.
type IndexMaintenanceError struct {
	View      string
	ProductID string
	Err       error
}

func (e *IndexMaintenanceError) Error() string {
	return fmt.Sprintf("maintain %s view for product %s: %v", e.View, e.ProductID, e.Err)
}

func (e *IndexMaintenanceError) Unwrap() error {
	return e.Err
}
