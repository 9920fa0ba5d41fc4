package redis

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected connect error")
	}
	if !strings.Contains(err.Error(), "redis ping at 127.0.0.1:1") {
		t.Fatalf("expected address in error, got %v", err)
	}
}
