package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/dto"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	auctions *service.AuctionService
	catalog  *service.CatalogService
	logger   logrus.FieldLogger
}

// NewServer constructs a gRPC server handler.
func NewServer(auctions *service.AuctionService, catalog *service.CatalogService, logger logrus.FieldLogger) *Server {
	return &Server{auctions: auctions, catalog: catalog, logger: logger}
}

// GetProduct returns a product and counts the caller as a viewer.
func (s *Server) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	msg := dto.GetProductFromGRPC(req)
	if err := msg.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	product, err := s.auctions.GetDetail(ctx, msg.ProductID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return productStruct(product)
}

// PlaceBid places a bid for the caller named in the x-username metadata.
func (s *Server) PlaceBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	msg := dto.BidFromGRPC(req)
	if err := msg.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	product, err := s.auctions.Bid(ctx, msg.ProductID, msg.Price)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return productStruct(product)
}

// ListProducts serves one of the catalog listings.
func (s *Server) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	msg := dto.ListFromGRPC(req)
	if err := msg.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page := msg.ToPage()
	var (
		products []entity.Product
		err      error
	)
	switch msg.View {
	case dto.ViewMostViewed:
		products, err = s.catalog.ListMostViewed(ctx, page)
	case dto.ViewMostExpensive:
		products, err = s.catalog.ListMostExpensive(ctx, page)
	default:
		products, err = s.catalog.ListEndingSoonest(ctx, page)
	}
	if err != nil {
		return nil, s.toStatus(err)
	}

	items := make([]interface{}, 0, len(products))
	for i := range products {
		items = append(items, productFields(&products[i]))
	}
	out, err := structpb.NewStruct(map[string]interface{}{
		"view":     msg.View,
		"offset":   page.Offset,
		"limit":    page.Limit,
		"products": items,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode products: %v", err))
	}
	return out, nil
}

func (s *Server) toStatus(err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		s.logger.WithError(err).Error("grpc request failed")
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrConcurrencyConflict):
		return codes.Aborted
	case errors.Is(err, service.ErrInvalidBidWindow):
		return codes.FailedPrecondition
	case errors.Is(err, service.ErrInvalidBidAmount), errors.Is(err, dto.ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, service.ErrProductNotFound):
		return codes.NotFound
	case errors.Is(err, service.ErrNotOwner):
		return codes.PermissionDenied
	case errors.Is(err, service.ErrUsernameRequired):
		return codes.Unauthenticated
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func productFields(p *entity.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"desc":        p.Description,
		"username":    p.Owner,
		"views":       p.Views,
		"highest_bid": p.HighestBid,
		"ending_at":   p.EndingAt.UTC().Format(time.RFC3339Nano),
	}
}

func productStruct(p *entity.Product) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(productFields(p))
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode product: %v", err))
	}
	return out, nil
}
