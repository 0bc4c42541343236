package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-auctions/app/entity"
)

// CatalogQueries reads the derived listing views.
type CatalogQueries interface {
	EndingSoonest(ctx context.Context, from time.Time, page entity.Page) ([]entity.Product, error)
	MostViewed(ctx context.Context, page entity.Page) ([]entity.Product, error)
	MostExpensive(ctx context.Context, page entity.Page) ([]entity.Product, error)
}

type CatalogService struct {
	reader CatalogQueries
	now    func() time.Time
}

// NewCatalogService builds the listing service. A nil now uses time.Now.
func NewCatalogService(reader CatalogQueries, now func() time.Time) *CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogService{reader: reader, now: now}
}

// ListEndingSoonest lists open products, soonest ending first.
func (s *CatalogService) ListEndingSoonest(ctx context.Context, page entity.Page) ([]entity.Product, error) {
	return s.reader.EndingSoonest(ctx, s.now(), page)
}

// ListMostViewed lists products by unique view count, highest first.
func (s *CatalogService) ListMostViewed(ctx context.Context, page entity.Page) ([]entity.Product, error) {
	return s.reader.MostViewed(ctx, page)
}

// ListMostExpensive lists products by highest bid, highest first.
func (s *CatalogService) ListMostExpensive(ctx context.Context, page entity.Page) ([]entity.Product, error) {
	return s.reader.MostExpensive(ctx, page)
}
