// Package keys maps auction entities to Redis keys.
package keys

import "strings"

const (
	productPrefix = "product#"

	EndingSoonest = "products:ending-soonest"
	ViewBoard     = "products:view-board"
	BidStream     = "auctions:bids:accepted"
)

// Product returns the hash key holding a product record.
func Product(productID string) string {
	return productPrefix + productID
}

// ProductPrefix is the key prefix shared by every product hash.
// The search index is declared over this prefix.
func ProductPrefix() string {
	return productPrefix
}

// ProductIDFromKey strips the product prefix from a hash key.
func ProductIDFromKey(key string) string {
	return strings.TrimPrefix(key, productPrefix)
}

// ProductPattern returns the SORT BY/GET pattern for a product hash field.
func ProductPattern(field string) string {
	return Product("*") + "->" + field
}

func UniqueViews(productID string) string {
	return "product-unique-view#" + productID
}

func BidHistory(productID string) string {
	return "product-bid-history#" + productID
}

// BidLock returns the lock resource key serializing bids on one product.
func BidLock(productID string) string {
	return "bid-lock#" + productID
}
