package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
	"github.com/vibast-solutions/ms-go-auctions/app/lock"
	"github.com/vibast-solutions/ms-go-auctions/app/logging"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
	"golang.org/x/sync/errgroup"
)

var base = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.BidEvent
	err    error
}

func (p *recordingPublisher) PublishBid(_ context.Context, event entity.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fixture struct {
	mr       *miniredis.Miniredis
	client   *redis.Client
	products *repository.ProductRepository
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return &fixture{
		mr:       mr,
		client:   client,
		products: repository.NewProductRepository(client, logging.Discard()),
		clock:    &fakeClock{now: base},
	}
}

func (f *fixture) service(store ProductStore, opts ...AuctionOption) *AuctionService {
	locker := lock.NewRedisLocker(f.client, lock.WithClock(f.clock.Now), lock.WithLogger(logging.Discard()))
	opts = append([]AuctionOption{WithNow(f.clock.Now)}, opts...)
	return NewAuctionService(store, locker, logging.Discard(), opts...)
}

func as(username string) context.Context {
	return WithUsername(context.Background(), username)
}

func TestAuctionServiceCreateAndGetDetailRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(f.products)

	created, err := svc.Create(as("alice"), "Camera", "35mm film", base.Add(time.Hour))
	require.NoError(t, err)

	detail, err := svc.GetDetail(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Camera", detail.Name)
	assert.Equal(t, "35mm film", detail.Description)
	assert.Equal(t, "alice", detail.Owner)
	assert.True(t, base.Add(time.Hour).Equal(detail.EndingAt))
	assert.Zero(t, detail.Views)
	assert.Zero(t, detail.HighestBid)
}

func TestAuctionServiceCreateRequiresUsername(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service(f.products).Create(context.Background(), "Camera", "", base)
	assert.ErrorIs(t, err, ErrUsernameRequired)
}

func TestAuctionServiceGetDetailCountsUniqueViewers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(f.products)
	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)

	for _, viewer := range []string{"bob", "bob", "carol"} {
		_, err := svc.GetDetail(as(viewer), created.ID)
		require.NoError(t, err)
	}

	detail, err := svc.GetDetail(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.Views)

	_, err = svc.GetDetail(as("bob"), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAuctionServiceUpdateRequiresOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(f.products)
	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)

	name := "Rangefinder"
	_, err = svc.Update(as("mallory"), created.ID, entity.ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := svc.Update(as("alice"), created.ID, entity.ProductUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Rangefinder", updated.Name)

	_, err = svc.Update(as("alice"), "missing", entity.ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAuctionServiceBidWindowAndAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	publisher := &recordingPublisher{}
	svc := f.service(f.products, WithPublisher(publisher))

	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Bid(as("bob"), created.ID, 50)
	require.NoError(t, err)

	f.clock.Set(base.Add(2 * time.Hour))
	_, err = svc.Bid(as("carol"), created.ID, 100)
	assert.ErrorIs(t, err, ErrInvalidBidWindow)

	f.clock.Set(base)
	_, err = svc.Bid(as("carol"), created.ID, 50)
	assert.ErrorIs(t, err, ErrInvalidBidAmount)

	accepted, err := svc.Bid(as("carol"), created.ID, 51)
	require.NoError(t, err)
	assert.Equal(t, 51.0, accepted.HighestBid)

	stored, err := f.products.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 51.0, stored.HighestBid)

	history, err := svc.BidHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bob", history[0].Username)
	assert.Equal(t, "carol", history[1].Username)
	assert.Equal(t, 51.0, history[1].Price)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, 50.0, publisher.events[1].PreviousBid)
	assert.Equal(t, 51.0, publisher.events[1].Price)
	assert.False(t, f.mr.Exists(keys.BidLock(created.ID)), "lock must be released")
}

func TestAuctionServiceBidMissingProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service(f.products).Bid(as("bob"), "missing", 10)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.False(t, f.mr.Exists(keys.BidLock("missing")))
}

func TestAuctionServiceConcurrentBidsKeepTheMaximum(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(f.products, WithBidConfig(BidConfig{
		Lease: time.Minute,
		Retry: lock.RetryPolicy{MaxRetries: 500, Delay: 2 * time.Millisecond},
	}))

	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Bid(as("seller-friend"), created.ID, 5)
	require.NoError(t, err)

	var g errgroup.Group
	var mu sync.Mutex
	accepted := make([]float64, 0, 3)
	for i, price := range []float64{10, 20, 15} {
		price := price
		ctx := as(string(rune('a' + i)))
		g.Go(func() error {
			_, err := svc.Bid(ctx, created.ID, price)
			if errors.Is(err, ErrInvalidBidAmount) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			accepted = append(accepted, price)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	stored, err := f.products.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.HighestBid)
	assert.Contains(t, accepted, 20.0)

	history, err := svc.BidHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, len(accepted)+1)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Price, history[i-1].Price, "accepted bids must strictly increase")
	}
}

func TestAuctionServiceBidLockTimeoutIsConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(f.products, WithBidConfig(BidConfig{
		Lease: time.Second,
		Retry: lock.RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
	}))

	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.mr.Set(keys.BidLock(created.ID), "someone-else"))

	_, err = svc.Bid(as("bob"), created.ID, 10)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, err, lock.ErrLockAcquisitionTimeout)

	got, err := f.mr.Get(keys.BidLock(created.ID))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got, "foreign lock must survive")
}

// slowStore advances the clock past the lease while the critical section reads.
type slowStore struct {
	*repository.ProductRepository
	clock *fakeClock
	delay time.Duration
}

func (s *slowStore) Get(ctx context.Context, reader repository.HashReader, id string) (*entity.Product, error) {
	product, err := s.ProductRepository.Get(ctx, reader, id)
	s.clock.Advance(s.delay)
	return product, err
}

func TestAuctionServiceBidLeaseExpiryIsConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	store := &slowStore{ProductRepository: f.products, clock: f.clock, delay: 2 * time.Second}
	svc := f.service(store, WithBidConfig(BidConfig{
		Lease: time.Second,
		Retry: lock.RetryPolicy{},
	}))

	created, err := f.products.Create(context.Background(), entity.NewProduct{
		Name:     "Camera",
		Owner:    "alice",
		EndingAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Bid(as("bob"), created.ID, 10)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, err, lock.ErrLockExpired)

	stored, err := f.products.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.HighestBid, "nothing may be committed after the lease")
	assert.False(t, f.mr.Exists(keys.BidHistory(created.ID)))
}

func TestAuctionServicePublishFailureKeepsBid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	publisher := &recordingPublisher{err: errors.New("stream unavailable")}
	svc := f.service(f.products, WithPublisher(publisher))

	created, err := svc.Create(as("alice"), "Camera", "", base.Add(time.Hour))
	require.NoError(t, err)

	accepted, err := svc.Bid(as("bob"), created.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, accepted.HighestBid)
	assert.Len(t, publisher.events, 1)
}

func TestUsernameFromContext(t *testing.T) {
	t.Parallel()

	_, ok := UsernameFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UsernameFromContext(WithUsername(context.Background(), ""))
	assert.False(t, ok)

	username, ok := UsernameFromContext(WithUsername(context.Background(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}
