package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/entity"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
)

// projectedFields are fetched by SORT ... GET, after the member id itself.
var projectedFields = []string{fieldName, fieldOwner, fieldDesc, fieldViews, fieldHighestBid, fieldEndingAt}

// CatalogReader answers the listing queries, each from its own derived view.
type CatalogReader struct {
	client *redis.Client
	index  string
	logger logrus.FieldLogger
}

// NewCatalogReader constructs the read side of the catalog. index names the search index.
func NewCatalogReader(client *redis.Client, index string, logger logrus.FieldLogger) *CatalogReader {
	return &CatalogReader{client: client, index: index, logger: logger}
}

// EndingSoonest lists products ending at or after from, soonest first. Records
// that cannot be read are skipped.
func (r *CatalogReader) EndingSoonest(ctx context.Context, from time.Time, page entity.Page) ([]entity.Product, error) {
	ids, err := r.client.ZRangeByScore(ctx, keys.EndingSoonest, &redis.ZRangeBy{
		Min:    strconv.FormatInt(from.UnixMilli(), 10),
		Max:    "+inf",
		Offset: page.Offset,
		Count:  page.Limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", keys.EndingSoonest, err)
	}
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, pipeErr := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, keys.Product(id))
		}
		return nil
	})

	products := make([]entity.Product, 0, len(ids))
	failed := 0
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if err != nil {
			failed++
			r.logger.WithError(err).WithField("product_id", ids[i]).Warn("skipping unreadable product")
			continue
		}
		if len(raw) == 0 {
			r.logger.WithField("product_id", ids[i]).Debug("skipping product missing from records")
			continue
		}
		products = append(products, *decodeProduct(ids[i], raw))
	}

	if pipeErr != nil && failed == len(ids) {
		return nil, fmt.Errorf("read ending soonest products: %w", pipeErr)
	}
	return products, nil
}

// MostViewed sorts the popularity board by the views field of each record and
// projects the record fields in the same round trip.
func (r *CatalogReader) MostViewed(ctx context.Context, page entity.Page) ([]entity.Product, error) {
	get := make([]string, 0, len(projectedFields)+1)
	get = append(get, "#")
	for _, field := range projectedFields {
		get = append(get, keys.ProductPattern(field))
	}

	values, err := r.client.Sort(ctx, keys.ViewBoard, &redis.Sort{
		By:     keys.ProductPattern(fieldViews),
		Offset: page.Offset,
		Count:  page.Limit,
		Order:  "DESC",
		Get:    get,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("sort %s: %w", keys.ViewBoard, err)
	}

	return regroupSorted(values, projectedFields), nil
}

// MostExpensive queries the search index sorted by highest bid.
// The reply is read in the RESP2 layout, so the client must use protocol 2.
func (r *CatalogReader) MostExpensive(ctx context.Context, page entity.Page) ([]entity.Product, error) {
	reply, err := r.client.Do(ctx, "FT.SEARCH", r.index, "*",
		"SORTBY", fieldHighestBid, "DESC",
		"LIMIT", page.Offset, page.Limit,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.index, err)
	}
	return parseSearchReply(reply)
}

// regroupSorted splits a flat SORT ... GET reply into products. Each group is
// the member id followed by one value per field.
func regroupSorted(values []string, fields []string) []entity.Product {
	width := len(fields) + 1
	products := make([]entity.Product, 0, len(values)/width)

	for i := 0; i+width <= len(values); i += width {
		raw := make(map[string]string, len(fields))
		for j, field := range fields {
			if value := values[i+1+j]; value != "" {
				raw[field] = value
			}
		}
		if len(raw) == 0 {
			continue
		}
		products = append(products, *decodeProduct(values[i], raw))
	}
	return products
}

// parseSearchReply regroups an FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchReply(reply []interface{}) ([]entity.Product, error) {
	if len(reply) == 0 {
		return nil, fmt.Errorf("empty search reply")
	}

	docs := reply[1:]
	if len(docs)%2 != 0 {
		return nil, fmt.Errorf("malformed search reply: %d trailing elements", len(docs))
	}

	products := make([]entity.Product, 0, len(docs)/2)
	for i := 0; i < len(docs); i += 2 {
		key := toString(docs[i])
		pairs, ok := docs[i+1].([]interface{})
		if !ok {
			return nil, fmt.Errorf("malformed search reply: fields of %s are %T", key, docs[i+1])
		}

		raw := make(map[string]string, len(pairs)/2)
		for j := 0; j+1 < len(pairs); j += 2 {
			raw[toString(pairs[j])] = toString(pairs[j+1])
		}
		products = append(products, *decodeProduct(keys.ProductIDFromKey(key), raw))
	}
	return products, nil
}
