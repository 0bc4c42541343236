package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
)

type BidProducer struct {
	client *redis.Client
}

// NewBidProducer constructs a Redis stream producer.
func NewBidProducer(client *redis.Client) *BidProducer {
	return &BidProducer{client: client}
}

// PublishBid pushes an accepted bid onto the stream.
func (p *BidProducer) PublishBid(ctx context.Context, event entity.BidEvent) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: encodeEvent(event),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", StreamName, err)
	}
	return nil
}
