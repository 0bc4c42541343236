//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	grpcserver "github.com/vibast-solutions/ms-go-auctions/app/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultHTTPBase = "http://localhost:8080"
	defaultGRPCAddr = "localhost:9090"
	defaultMySQLDSN = "root:root@tcp(localhost:3307)/auctions?parseTime=true"
)

type product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Owner      string  `json:"username"`
	Views      int64   `json:"views"`
	HighestBid float64 `json:"highest_bid"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	return &httpClient{
		baseURL: envOr("AUCTIONS_HTTP_URL", defaultHTTPBase),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) do(t *testing.T, method string, path string, username string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.Header.Set("X-Username", username)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, buf.Bytes()
}

func (c *httpClient) createProduct(t *testing.T, owner string, endingAt time.Time) product {
	t.Helper()

	resp, body := c.do(t, http.MethodPost, "/products", owner, map[string]any{
		"name":      fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		"desc":      "created by the e2e suite",
		"ending_at": endingAt.UTC().Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product failed: %d body: %s", resp.StatusCode, string(body))
	}
	var p product
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return p
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("mysql", envOr("AUCTIONS_MYSQL_DSN", defaultMySQLDSN))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping db failed: %v", err)
	}
	return db
}

func waitForArchivedBids(t *testing.T, db *sql.DB, productID string, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var got int
		if err := db.QueryRow("SELECT COUNT(*) FROM bid_history WHERE product_id = ?", productID).Scan(&got); err != nil {
			t.Fatalf("db query failed: %v", err)
		}
		if got == want {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d archived bids of product %s", want, productID)
}

func TestAuctionsE2E(t *testing.T) {
	httpBase := envOr("AUCTIONS_HTTP_URL", defaultHTTPBase)
	grpcAddr := envOr("AUCTIONS_GRPC_ADDR", defaultGRPCAddr)

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}
	if err := waitForGRPC(grpcAddr, 30*time.Second); err != nil {
		t.Fatalf("grpc not ready: %v", err)
	}

	client := newHTTPClient()

	t.Run("HTTPValidation", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodPost, "/products", "alice", map[string]string{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing fields, got %d", resp.StatusCode)
		}
		resp, _ = client.do(t, http.MethodGet, "/products/most-viewed?limit=1000", "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for oversized limit, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPUniqueViews", func(t *testing.T) {
		p := client.createProduct(t, "alice", time.Now().Add(time.Hour))
		for _, viewer := range []string{"bob", "bob", "carol"} {
			resp, _ := client.do(t, http.MethodGet, "/products/"+p.ID, viewer, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("get product failed: %d", resp.StatusCode)
			}
		}

		_, body := client.do(t, http.MethodGet, "/products/"+p.ID, "", nil)
		var got product
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode product: %v", err)
		}
		if got.Views != 2 {
			t.Fatalf("expected 2 unique views, got %d", got.Views)
		}
	})

	t.Run("HTTPConcurrentBids", func(t *testing.T) {
		p := client.createProduct(t, "alice", time.Now().Add(time.Hour))

		var wg sync.WaitGroup
		for i, price := range []float64{10, 20, 15} {
			wg.Add(1)
			go func(bidder string, price float64) {
				defer wg.Done()
				client.do(t, http.MethodPost, "/products/"+p.ID+"/bid", bidder, map[string]float64{"price": price})
			}(fmt.Sprintf("bidder-%d", i), price)
		}
		wg.Wait()

		_, body := client.do(t, http.MethodGet, "/products/"+p.ID, "", nil)
		var got product
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode product: %v", err)
		}
		if got.HighestBid != 20 {
			t.Fatalf("expected highest bid 20, got %v", got.HighestBid)
		}
	})

	t.Run("BidArchive", func(t *testing.T) {
		if os.Getenv("AUCTIONS_E2E_ARCHIVE") == "" {
			t.Skip("set AUCTIONS_E2E_ARCHIVE when the bid consumer is running")
		}
		db := openDB(t)
		defer db.Close()

		p := client.createProduct(t, "alice", time.Now().Add(time.Hour))
		for _, price := range []float64{5, 6} {
			resp, body := client.do(t, http.MethodPost, "/products/"+p.ID+"/bid", "bob", map[string]float64{"price": price})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("bid failed: %d body: %s", resp.StatusCode, string(body))
			}
		}
		waitForArchivedBids(t, db, p.ID, 2, 20*time.Second)
	})

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc dial failed: %v", err)
	}
	defer conn.Close()

	grpcClient := grpcserver.NewAuctionServiceClient(conn)

	t.Run("GRPCHealth", func(t *testing.T) {
		resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Fatalf("expected SERVING, got %v", resp.GetStatus())
		}
	})

	t.Run("GRPCBid", func(t *testing.T) {
		p := client.createProduct(t, "alice", time.Now().Add(time.Hour))
		ctx := metadata.AppendToOutgoingContext(context.Background(), grpcserver.MetadataUsername, "bob")

		req, _ := structpb.NewStruct(map[string]any{"product_id": p.ID, "price": 50})
		if _, err := grpcClient.PlaceBid(ctx, req); err != nil {
			t.Fatalf("grpc place bid failed: %v", err)
		}

		_, err := grpcClient.PlaceBid(ctx, req)
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument for an equal bid, got %v", err)
		}

		missing, _ := structpb.NewStruct(map[string]any{"product_id": "missing"})
		_, err = grpcClient.GetProduct(ctx, missing)
		if status.Code(err) != codes.NotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})
}
