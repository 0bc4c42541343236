package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-auctions/app/keys"
)

// SearchIndex administers the RediSearch index over product hashes. Redis
// indexes every hash written under the product prefix, so record writes keep
// it current without extra calls.
type SearchIndex struct {
	client *redis.Client
	name   string
}

func NewSearchIndex(client *redis.Client, name string) *SearchIndex {
	return &SearchIndex{client: client, name: name}
}

// Name returns the index name.
func (s *SearchIndex) Name() string {
	return s.name
}

// Create declares the index schema.
func (s *SearchIndex) Create(ctx context.Context) error {
	err := s.client.Do(ctx, "FT.CREATE", s.name,
		"ON", "HASH",
		"PREFIX", "1", keys.ProductPrefix(),
		"SCHEMA",
		fieldName, "TEXT",
		fieldDesc, "TEXT",
		fieldOwner, "TAG",
		fieldViews, "NUMERIC", "SORTABLE",
		fieldHighestBid, "NUMERIC", "SORTABLE",
		fieldEndingAt, "NUMERIC", "SORTABLE",
	).Err()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return fmt.Errorf("%w: %s", ErrSearchIndexExists, s.name)
		}
		return fmt.Errorf("create search index %s: %w", s.name, err)
	}
	return nil
}

// Drop removes the index definition. Indexed hashes are kept.
func (s *SearchIndex) Drop(ctx context.Context) error {
	err := s.client.Do(ctx, "FT.DROPINDEX", s.name).Err()
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index") {
			return fmt.Errorf("%w: %s", ErrSearchIndexNotFound, s.name)
		}
		return fmt.Errorf("drop search index %s: %w", s.name, err)
	}
	return nil
}

// Ensure creates the index unless it is already there.
func (s *SearchIndex) Ensure(ctx context.Context) error {
	if err := s.Create(ctx); err != nil && !errors.Is(err, ErrSearchIndexExists) {
		return err
	}
	return nil
}
