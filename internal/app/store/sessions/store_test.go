package sessions_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/store/sessions"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/campusdesk/internal/testutil"
	"github.com/redis/go-redis/v9"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	if err := store.Save(ctx, "sid-1", "payload", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := store.Load(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != "payload" {
		t.Errorf("Load = %q, want %q", data, "payload")
	}

	// Save again overwrites.
	if err := store.Save(ctx, "sid-1", "updated", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	data, _ = store.Load(ctx, "sid-1")
	if data != "updated" {
		t.Errorf("Load after overwrite = %q, want %q", data, "updated")
	}

	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "sid-1"); err != auth.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestStore_Load_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Save(ctx, "old", "payload", time.Now().Add(-time.Minute))

	if _, err := store.Load(ctx, "old"); err != auth.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Save(ctx, "expired-1", "x", time.Now().Add(-time.Hour))
	_ = store.Save(ctx, "expired-2", "x", time.Now().Add(-time.Minute))
	_ = store.Save(ctx, "live", "x", time.Now().Add(time.Hour))

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpired removed %d, want 2", n)
	}
	if total, _ := store.Count(ctx); total != 1 {
		t.Errorf("expected 1 session left, got %d", total)
	}
}

func TestRedis_SaveLoadDelete(t *testing.T) {
	addr := os.Getenv("CAMPUSDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAMPUSDESK_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	store := sessions.NewRedis(rdb, "campusdesk:test:session:")

	if err := store.Save(ctx, "sid", "payload", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := store.Load(ctx, "sid")
	if err != nil || data != "payload" {
		t.Fatalf("Load = %q, %v", data, err)
	}
	if ttl := rdb.TTL(ctx, "campusdesk:test:session:sid").Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected TTL %v", ttl)
	}
	if err := store.Delete(ctx, "sid"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "sid"); err != auth.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
