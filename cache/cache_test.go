package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test:", time.Minute), mr
}

func TestFetchLoadsOnceUntilInvalidated(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, "list:1", load, nil)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
			t.Fatalf("fetch %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 load, got %d", calls)
	}

	if err := c.Invalidate(ctx, "list:1"); err != nil {
		t.Fatal(err)
	}
	if _, err := Fetch(ctx, c, "list:1", load, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected a refetch after invalidation, got %d loads", calls)
	}
}

func TestFetchLoadErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := Fetch(ctx, c, "k", func(context.Context) (int, error) { return 0, boom }, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if mr.Exists("test:k") {
		t.Fatal("failed load must not be cached")
	}
}

func TestFetchDropsLoadOverlappingInvalidation(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	load := func(ctx context.Context) ([]string, error) {
		// A write lands after the rows were read.
		if err := c.Invalidate(ctx, "list:1"); err != nil {
			t.Fatal(err)
		}
		return []string{}, nil
	}

	got, err := Fetch(ctx, c, "list:1", load, func(err error) { t.Fatalf("unexpected cache error: %v", err) })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected the loaded value to be returned, got %v", got)
	}
	if mr.Exists("test:list:1") {
		t.Fatal("value loaded before an invalidation must not be cached")
	}

	fresh := func(context.Context) ([]string, error) { return []string{"a"}, nil }
	if _, err := Fetch(ctx, c, "list:1", fresh, nil); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:list:1") {
		t.Fatal("a load with no concurrent invalidation must be cached")
	}
}

func TestInvalidateBumpsGeneration(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.Invalidate(ctx, "a", "b"); err != nil {
			t.Fatal(err)
		}
	}

	for _, k := range []string{"test:gen:a", "test:gen:b"} {
		v, err := mr.Get(k)
		if err != nil || v != "2" {
			t.Fatalf("%s: expected generation 2, got %q (%v)", k, v, err)
		}
	}
}

func TestNilClientAlwaysMisses(t *testing.T) {
	c := New(nil, "x:", time.Minute)
	ctx := context.Background()

	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	calls := 0
	load := func(context.Context) (int, error) { calls++; return 7, nil }
	Fetch(ctx, c, "k", load, nil)
	Fetch(ctx, c, "k", load, nil)
	if calls != 2 {
		t.Fatalf("expected every fetch to load, got %d", calls)
	}
}

func TestGetReportsRedisFailure(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var reported error
	got, err := Fetch(context.Background(), c, "k", func(context.Context) (int, error) { return 3, nil }, func(err error) { reported = err })
	if err != nil {
		t.Fatalf("redis failure must not fail the read: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected loaded value, got %d", got)
	}
	if reported == nil {
		t.Fatal("expected redis failure to be reported")
	}
}
