package allowlist

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot-relay/pkg/relay"
)

// closedAddr returns a local address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRedisChecker_UnreachableIsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        closedAddr(t),
		MaxRetries:  -1,
		DialTimeout: 500 * time.Millisecond,
	})
	rc, err := NewRedisChecker(client, "businesses")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	ok, err := rc.IsValidBusiness(context.Background(), "tester")
	require.Error(t, err)
	require.False(t, ok)
	require.Contains(t, err.Error(), "SISMEMBER businesses")

	backendCalled := false
	h, err := relay.NewHandler(rc, relay.BackendFunc(func(context.Context, map[string]any) (any, error) {
		backendCalled = true
		return map[string]any{"reply": "hello"}, nil
	}), relay.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"businessId":"tester","message":"hi","sessionId":"s1"}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal Server Error")
	require.False(t, backendCalled)
}

// Needs a live Redis; set REDIS_ADDR (for example localhost:6379) to run.
func TestRedisChecker_Membership(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	key := fmt.Sprintf("chatbot-relay-test:%d", time.Now().UnixNano())

	client := redis.NewClient(&redis.Options{Addr: addr})
	rc, err := NewRedisChecker(client, key)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), key).Err()
		_ = rc.Close()
	})
	require.NoError(t, client.SAdd(ctx, key, "tester", "acme").Err())

	for id, want := range map[string]bool{"tester": true, "acme": true, "other": false, "": false} {
		ok, err := rc.IsValidBusiness(ctx, id)
		require.NoError(t, err, id)
		require.Equal(t, want, ok, id)
	}
}
