package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
	"github.com/vibast-solutions/ms-go-auctions/app/metrics"
)

// HashReader reads a product record. Both *redis.Client and *lock.Guard satisfy it.
type HashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Batcher runs a MULTI/EXEC batch. Both *redis.Client and *lock.Guard satisfy it.
type Batcher interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// ProductRepository owns the product records and keeps the derived views in
// step with every write. Derived view failures are logged and not rolled back.
type ProductRepository struct {
	client *redis.Client
	logger logrus.FieldLogger
}

// NewProductRepository constructs a repository backed by Redis.
func NewProductRepository(client *redis.Client, logger logrus.FieldLogger) *ProductRepository {
	return &ProductRepository{client: client, logger: logger}
}

// Create stores a new product and registers it in the ending-soonest and popularity views.
func (r *ProductRepository) Create(ctx context.Context, input entity.NewProduct) (*entity.Product, error) {
	product := &entity.Product{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Owner:       input.Owner,
		EndingAt:    toMillis(input.EndingAt),
	}

	if err := r.client.HSet(ctx, keys.Product(product.ID), encodeProduct(product)).Err(); err != nil {
		return nil, fmt.Errorf("write product %s: %w", product.ID, err)
	}

	r.maintain(ViewEndingSoonest, product.ID, r.client.ZAdd(ctx, keys.EndingSoonest, redis.Z{
		Score:  float64(product.EndingAt.UnixMilli()),
		Member: product.ID,
	}).Err())
	r.maintain(ViewPopularity, product.ID, r.client.ZAddNX(ctx, keys.ViewBoard, redis.Z{
		Score:  0,
		Member: product.ID,
	}).Err())

	return product, nil
}

// Update overwrites the supplied fields. An empty update is a no-op.
func (r *ProductRepository) Update(ctx context.Context, id string, update entity.ProductUpdate) error {
	if update.Empty() {
		return nil
	}

	key := keys.Product(id)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check product %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	fields := make(map[string]interface{}, 3)
	if update.Name != nil {
		fields[fieldName] = *update.Name
	}
	if update.Description != nil {
		fields[fieldDesc] = *update.Description
	}
	if update.EndingAt != nil {
		fields[fieldEndingAt] = update.EndingAt.UnixMilli()
	}

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}

	if update.EndingAt != nil {
		r.maintain(ViewEndingSoonest, id, r.client.ZAdd(ctx, keys.EndingSoonest, redis.Z{
			Score:  float64(update.EndingAt.UnixMilli()),
			Member: id,
		}).Err())
	}
	return nil
}

// Get reads a product through reader without side effects.
func (r *ProductRepository) Get(ctx context.Context, reader HashReader, id string) (*entity.Product, error) {
	raw, err := reader.HGetAll(ctx, keys.Product(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read product %s: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return decodeProduct(id, raw), nil
}

// FindByID reads a product directly from Redis.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.Get(ctx, r.client, id)
}

// RecordView counts viewer once per product. A new viewer bumps the view count
// and the popularity score in one batch; the returned product carries the
// stored count.
func (r *ProductRepository) RecordView(ctx context.Context, id string, viewer string) (*entity.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	added, err := r.client.PFAdd(ctx, keys.UniqueViews(id), viewer).Result()
	if err != nil {
		r.maintain(ViewUniqueViews, id, err)
		return product, nil
	}
	if added == 0 {
		return product, nil
	}

	var views *redis.IntCmd
	if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		views = pipe.HIncrBy(ctx, keys.Product(id), fieldViews, 1)
		pipe.ZIncrBy(ctx, keys.ViewBoard, 1, id)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("increment views of %s: %w", id, err)
	}

	metrics.UniqueViews.Inc()
	product.Views = views.Val()
	return product, nil
}

// CommitBid writes the new highest bid and appends it to the history in one batch.
func (r *ProductRepository) CommitBid(ctx context.Context, batch Batcher, id string, bid entity.BidEntry) error {
	entry, err := json.Marshal(bid)
	if err != nil {
		return fmt.Errorf("encode bid entry: %w", err)
	}

	if _, err := batch.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keys.Product(id), fieldHighestBid, formatPrice(bid.Price))
		pipe.RPush(ctx, keys.BidHistory(id), string(entry))
		return nil
	}); err != nil {
		return fmt.Errorf("commit bid on %s: %w", id, err)
	}
	return nil
}

// BidHistory returns the accepted bids of a product, oldest first.
func (r *ProductRepository) BidHistory(ctx context.Context, id string) ([]entity.BidEntry, error) {
	raw, err := r.client.LRange(ctx, keys.BidHistory(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read bid history of %s: %w", id, err)
	}

	entries := make([]entity.BidEntry, 0, len(raw))
	for _, item := range raw {
		var entry entity.BidEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			r.logger.WithError(err).WithField("product_id", id).Warn("skipping malformed bid history entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *ProductRepository) maintain(view string, productID string, err error) {
	if err == nil {
		return
	}
	metrics.IndexMaintenanceFailures.WithLabelValues(view).Inc()
	r.logger.WithError(&IndexMaintenanceError{View: view, ProductID: productID, Err: err}).
		WithFields(logrus.Fields{"view": view, "product_id": productID}).
		Warn("derived view update failed")
}
