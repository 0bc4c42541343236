package repository

import (
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-auctions/app/logging"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestProductRepository(t *testing.T) (*miniredis.Miniredis, *redis.Client, *ProductRepository) {
	t.Helper()
	mr, client := newTestRedis(t)
	return mr, client, NewProductRepository(client, logging.Discard())
}

// skipUnsupported skips when the in-memory server lacks a command.
func skipUnsupported(t *testing.T, err error) {
	t.Helper()
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unknown command") {
		t.Skipf("command not supported by miniredis: %v", err)
	}
}
