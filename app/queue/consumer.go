package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/metrics"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
)

// Archive status labels.
const (
	statusArchived  = "archived"
	statusDuplicate = "duplicate"
	statusMalformed = "malformed"
	statusFailed    = "failed"
)

// Archiver persists accepted bids.
type Archiver interface {
	Insert(ctx context.Context, event entity.BidEvent) error
}

type BidConsumer struct {
	client       *redis.Client
	archive      Archiver
	consumerName string
	logger       logrus.FieldLogger
}

// NewBidConsumer constructs a Redis stream consumer feeding the bid archive.
func NewBidConsumer(client *redis.Client, archive Archiver, consumerName string, logger logrus.FieldLogger) *BidConsumer {
	return &BidConsumer{
		client:       client,
		archive:      archive,
		consumerName: consumerName,
		logger:       logger.WithField("consumer", consumerName),
	}
}

// Run starts the consumer loop and blocks until context cancellation.
func (c *BidConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.WithField("stream", StreamName).Info("bid consumer started")

	// Pending entries of this consumer first, then new ones.
	startID := "0"
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("bid consumer shutting down")
			return nil
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: c.consumerName,
			Streams:  []string{StreamName, startID},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if startID == "0" {
					startID = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				c.logger.Info("bid consumer shutting down")
				return nil
			}
			c.logger.WithError(err).Error("xreadgroup failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			if len(stream.Messages) == 0 && startID == "0" {
				startID = ">"
				continue
			}
			for _, msg := range stream.Messages {
				c.processMessage(ctx, msg)
			}
		}
	}
}

// processMessage archives one event. Archived, duplicate and malformed entries
// are acked; a failed insert stays pending for redelivery.
func (c *BidConsumer) processMessage(ctx context.Context, msg redis.XMessage) {
	logger := c.logger.WithField("message_id", msg.ID)

	event, err := decodeEvent(msg.Values)
	if err != nil {
		metrics.ArchivedBids.WithLabelValues(statusMalformed).Inc()
		logger.WithError(err).Error("dropping malformed bid event")
		c.ack(ctx, msg.ID)
		return
	}
	logger = logger.WithFields(logrus.Fields{"event_id": event.EventID, "product_id": event.ProductID})

	insertCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = c.archive.Insert(insertCtx, event)
	switch {
	case err == nil:
		metrics.ArchivedBids.WithLabelValues(statusArchived).Inc()
		logger.Debug("bid archived")
	case errors.Is(err, repository.ErrDuplicateEvent):
		metrics.ArchivedBids.WithLabelValues(statusDuplicate).Inc()
		logger.Info("bid already archived")
	default:
		metrics.ArchivedBids.WithLabelValues(statusFailed).Inc()
		logger.WithError(err).Error("archive bid failed, message stays pending")
		return
	}

	c.ack(ctx, msg.ID)
}

func (c *BidConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, StreamName, ConsumerGroup, id).Err(); err != nil {
		c.logger.WithError(err).WithField("message_id", id).Error("xack failed")
	}
}

// ensureGroup creates the stream and consumer group if missing.
func (c *BidConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, StreamName, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
