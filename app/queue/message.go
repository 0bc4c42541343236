package queue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
)

const StreamName = keys.BidStream
const ConsumerGroup = "bid-archivers"

// encodeEvent flattens an event into stream fields.
func encodeEvent(event entity.BidEvent) map[string]interface{} {
	return map[string]interface{}{
		"event_id":     event.EventID,
		"product_id":   event.ProductID,
		"username":     event.Username,
		"price":        strconv.FormatFloat(event.Price, 'f', -1, 64),
		"previous_bid": strconv.FormatFloat(event.PreviousBid, 'f', -1, 64),
		"placed_at":    event.PlacedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEvent(values map[string]interface{}) (entity.BidEvent, error) {
	field := func(name string) string {
		s, _ := values[name].(string)
		return s
	}

	event := entity.BidEvent{
		EventID:   field("event_id"),
		ProductID: field("product_id"),
		Username:  field("username"),
	}
	if event.EventID == "" || event.ProductID == "" {
		return entity.BidEvent{}, fmt.Errorf("bid event is missing event_id or product_id")
	}

	var err error
	if event.Price, err = strconv.ParseFloat(field("price"), 64); err != nil {
		return entity.BidEvent{}, fmt.Errorf("parse price: %w", err)
	}
	if event.PreviousBid, err = strconv.ParseFloat(field("previous_bid"), 64); err != nil {
		return entity.BidEvent{}, fmt.Errorf("parse previous_bid: %w", err)
	}
	if event.PlacedAt, err = time.Parse(time.RFC3339Nano, field("placed_at")); err != nil {
		return entity.BidEvent{}, fmt.Errorf("parse placed_at: %w", err)
	}
	return event, nil
}
