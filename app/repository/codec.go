package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-auctions/app/entity"
)

// Hash fields of a product record. The search index schema uses the same names.
const (
	fieldName       = "name"
	fieldDesc       = "desc"
	fieldOwner      = "username"
	fieldViews      = "views"
	fieldHighestBid = "highestBid"
	fieldEndingAt   = "endingAt"
)

func encodeProduct(p *entity.Product) map[string]interface{} {
	return map[string]interface{}{
		fieldName:       p.Name,
		fieldDesc:       p.Description,
		fieldOwner:      p.Owner,
		fieldViews:      p.Views,
		fieldHighestBid: formatPrice(p.HighestBid),
		fieldEndingAt:   p.EndingAt.UnixMilli(),
	}
}

// decodeProduct is lenient: malformed numbers decode as zero.
func decodeProduct(id string, raw map[string]string) *entity.Product {
	views, _ := strconv.ParseInt(raw[fieldViews], 10, 64)
	highestBid, _ := strconv.ParseFloat(raw[fieldHighestBid], 64)
	endingAt, _ := strconv.ParseInt(raw[fieldEndingAt], 10, 64)

	return &entity.Product{
		ID:          id,
		Name:        raw[fieldName],
		Description: raw[fieldDesc],
		Owner:       raw[fieldOwner],
		Views:       views,
		HighestBid:  highestBid,
		EndingAt:    toMillis(time.UnixMilli(endingAt)),
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// toMillis truncates t to the precision stored in Redis.
func toMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
