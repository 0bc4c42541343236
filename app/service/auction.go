package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
	"github.com/vibast-solutions/ms-go-auctions/app/lock"
	"github.com/vibast-solutions/ms-go-auctions/app/metrics"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
)

// BidState is the stage a bid attempt reached. Failed attempts are logged
// with the stage they failed in.
type BidState string

const (
	BidLockPending BidState = "lock_pending"
	BidValidating  BidState = "validating"
	BidCommitting  BidState = "committing"
	BidReleased    BidState = "released"
)

// BidConfig controls the per-product bid lock.
type BidConfig struct {
	Lease time.Duration
	Retry lock.RetryPolicy
}

// DefaultBidConfig is a one second lease with five retries 50ms apart.
func DefaultBidConfig() BidConfig {
	return BidConfig{
		Lease: time.Second,
		Retry: lock.RetryPolicy{MaxRetries: 5, Delay: 50 * time.Millisecond},
	}
}

// BidPublisher receives accepted bids once the lock is released.
type BidPublisher interface {
	PublishBid(ctx context.Context, event entity.BidEvent) error
}

// ProductStore is the part of the product repository the auction service needs.
type ProductStore interface {
	Create(ctx context.Context, input entity.NewProduct) (*entity.Product, error)
	Update(ctx context.Context, id string, update entity.ProductUpdate) error
	Get(ctx context.Context, reader repository.HashReader, id string) (*entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	RecordView(ctx context.Context, id string, viewer string) (*entity.Product, error)
	CommitBid(ctx context.Context, batch repository.Batcher, id string, bid entity.BidEntry) error
	BidHistory(ctx context.Context, id string) ([]entity.BidEntry, error)
}

type AuctionService struct {
	products  ProductStore
	locker    lock.Locker
	publisher BidPublisher
	config    BidConfig
	now       func() time.Time
	logger    logrus.FieldLogger
}

type AuctionOption func(*AuctionService)

// WithPublisher sets where accepted bids are announced.
func WithPublisher(publisher BidPublisher) AuctionOption {
	return func(s *AuctionService) {
		s.publisher = publisher
	}
}

// WithBidConfig overrides the bid lock lease and retry policy.
func WithBidConfig(config BidConfig) AuctionOption {
	return func(s *AuctionService) {
		s.config = config
	}
}

// WithNow injects the clock used for bid windows.
func WithNow(now func() time.Time) AuctionOption {
	return func(s *AuctionService) {
		s.now = now
	}
}

// NewAuctionService builds the auction service with dependencies.
func NewAuctionService(products ProductStore, locker lock.Locker, logger logrus.FieldLogger, opts ...AuctionOption) *AuctionService {
	s := &AuctionService{
		products: products,
		locker:   locker,
		config:   DefaultBidConfig(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create lists a new product owned by the caller.
func (s *AuctionService) Create(ctx context.Context, name string, description string, endingAt time.Time) (*entity.Product, error) {
	owner, ok := UsernameFromContext(ctx)
	if !ok {
		return nil, ErrUsernameRequired
	}

	product, err := s.products.Create(ctx, entity.NewProduct{
		Name:        name,
		Description: description,
		Owner:       owner,
		EndingAt:    endingAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"product_id": product.ID, "owner": owner}).Info("product created")
	return product, nil
}

// GetDetail returns a product. A caller with a username is counted as a
// unique viewer; anonymous reads leave the counters alone.
func (s *AuctionService) GetDetail(ctx context.Context, id string) (*entity.Product, error) {
	viewer, ok := UsernameFromContext(ctx)
	if !ok {
		return s.products.FindByID(ctx, id)
	}
	return s.products.RecordView(ctx, id, viewer)
}

// Update overwrites the supplied fields of a product the caller owns.
func (s *AuctionService) Update(ctx context.Context, id string, update entity.ProductUpdate) (*entity.Product, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return nil, ErrUsernameRequired
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Owner != username {
		return nil, ErrNotOwner
	}

	if err := s.products.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

// BidHistory returns the accepted bids of a product, oldest first.
func (s *AuctionService) BidHistory(ctx context.Context, id string) ([]entity.BidEntry, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.products.BidHistory(ctx, id)
}

// Bid places a bid for the caller. The product is locked, re-read and
// validated, and the new highest bid is committed before the lock is
// released. Lock contention and lease expiry surface as ErrConcurrencyConflict.
func (s *AuctionService) Bid(ctx context.Context, productID string, price float64) (*entity.Product, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return nil, ErrUsernameRequired
	}

	var accepted *entity.Product
	var event entity.BidEvent

	state := BidLockPending
	err := s.locker.WithLock(ctx, keys.BidLock(productID), s.config.Lease, s.config.Retry, func(ctx context.Context, guard *lock.Guard) error {
		state = BidValidating
		product, err := s.products.Get(ctx, guard, productID)
		if err != nil {
			return err
		}

		now := s.now()
		if product.Ended(now) {
			return fmt.Errorf("%w: ended at %s", ErrInvalidBidWindow, product.EndingAt.Format(time.RFC3339))
		}
		if price <= product.HighestBid {
			return fmt.Errorf("%w: %v <= %v", ErrInvalidBidAmount, price, product.HighestBid)
		}

		state = BidCommitting
		if err := s.products.CommitBid(ctx, guard, productID, entity.BidEntry{
			Username: username,
			Price:    price,
			PlacedAt: now,
		}); err != nil {
			return err
		}

		event = entity.BidEvent{
			EventID:     uuid.NewString(),
			ProductID:   productID,
			Username:    username,
			Price:       price,
			PreviousBid: product.HighestBid,
			PlacedAt:    now,
		}
		product.HighestBid = price
		accepted = product
		return nil
	})

	if err != nil {
		err = classifyBidError(err)
		s.finishBid(productID, username, price, state, err)
		return nil, err
	}

	state = BidReleased
	s.finishBid(productID, username, price, state, nil)
	s.publish(ctx, event)
	return accepted, nil
}

func classifyBidError(err error) error {
	if errors.Is(err, lock.ErrLockAcquisitionTimeout) || errors.Is(err, lock.ErrLockExpired) {
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	}
	return err
}

func bidOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, ErrInvalidBidWindow):
		return metrics.OutcomeInvalidWindow
	case errors.Is(err, ErrInvalidBidAmount):
		return metrics.OutcomeInvalidAmount
	case errors.Is(err, ErrProductNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

func (s *AuctionService) finishBid(productID string, username string, price float64, state BidState, err error) {
	outcome := bidOutcome(err)
	metrics.BidsTotal.WithLabelValues(outcome).Inc()

	entry := s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"username":   username,
		"price":      price,
		"state":      state,
		"outcome":    outcome,
	})
	switch outcome {
	case metrics.OutcomeAccepted:
		entry.Info("bid accepted")
	case metrics.OutcomeConflict, metrics.OutcomeError:
		entry.WithError(err).Warn("bid failed")
	default:
		entry.WithError(err).Info("bid rejected")
	}
}

func (s *AuctionService) publish(ctx context.Context, event entity.BidEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBid(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"product_id": event.ProductID,
			"event_id":   event.EventID,
		}).Warn("publish accepted bid failed")
	}
}
