package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedExam struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "exam:"), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	want := cachedExam{ID: 7, Title: "Algebra Midterm"}
	if err := helper.Set(ctx, "details:7", want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedExam
	if err := helper.Get(ctx, "details:7", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCacheHelper_GetMiss(t *testing.T) {
	helper, _ := newTestHelper(t)

	var got cachedExam
	err := helper.Get(context.Background(), "details:404", &got)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_KeyPrefix(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "details:1", cachedExam{ID: 1}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("exam:details:1") {
		t.Error("expected key exam:details:1 to exist in redis")
	}
}

func TestCacheHelper_TTLExpiry(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "details:2", cachedExam{ID: 2}, 30*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(time.Minute)

	var got cachedExam
	if err := helper.Get(ctx, "details:2", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"details:1", "details:2", "details:3"} {
		if err := helper.Set(ctx, key, cachedExam{}, time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "details:1", "details:2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if exists, _ := helper.Exists(ctx, "details:1"); exists {
		t.Error("details:1 should have been deleted")
	}
	if exists, _ := helper.Exists(ctx, "details:3"); !exists {
		t.Error("details:3 should still exist")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "attempts:exam:9:list", cachedExam{}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := helper.Set(ctx, "attempts:exam:9:stats", cachedExam{}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := helper.Set(ctx, "attempts:exam:10:list", cachedExam{}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := helper.InvalidatePattern(ctx, "attempts:exam:9*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	if exists, _ := helper.Exists(ctx, "attempts:exam:9:list"); exists {
		t.Error("attempts:exam:9:list should have been invalidated")
	}
	if exists, _ := helper.Exists(ctx, "attempts:exam:10:list"); !exists {
		t.Error("attempts:exam:10:list should not have been invalidated")
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "exam:")
	ctx := context.Background()

	if err := helper.Set(ctx, "details:1", cachedExam{}, time.Minute); err != nil {
		t.Errorf("Set() with nil client error = %v, want nil", err)
	}

	var got cachedExam
	if err := helper.Get(ctx, "details:1", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() with nil client error = %v, want ErrCacheNotAvailable", err)
	}
}

func TestCacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedExam{ID: 5, Title: "Geometry Final"}, nil
	}

	var got cachedExam
	if err := helper.CacheOrExecute(ctx, "details:5", &got, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	if got.Title != "Geometry Final" {
		t.Errorf("got.Title = %q, want %q", got.Title, "Geometry Final")
	}

	// Seed the cache synchronously so the second call can hit it
	if err := helper.Set(ctx, "details:5", got, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var again cachedExam
	if err := helper.CacheOrExecute(ctx, "details:5", &again, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() second call error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls after cache hit = %d, want 1", calls)
	}
}
