package ch

import (
	"context"
	"testing"
)

// TestOpenParsesDSN builds a pool from a well formed DSN without dialing
func TestOpenParsesDSN(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := Config{URL: "clickhouse://default:@localhost:9000/repolens"}
	cl, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if cl == nil {
		t.Fatalf("Open returned nil client")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestOpenRejectsBadDSN surfaces DSN parse failures at open time
func TestOpenRejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "://not-a-dsn"}); err == nil {
		t.Fatalf("Open expected error for malformed dsn, got nil")
	}
}
