package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "geometry:a"); hit || err != nil {
		t.Fatalf("empty cache hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, "geometry:a", []byte(`{"id":"x"}`), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "geometry:a")
	if err != nil || !hit || string(data) != `{"id":"x"}` {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "geometry:a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "geometry:a"); hit {
		t.Error("hit after Delete")
	}
	if err := c.Delete(ctx, "geometry:a"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Fatal("miss before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("hit after expiry")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	if entries, size, err := c.Usage(); err != nil || entries != 3 || size == 0 {
		t.Errorf("Usage() = %d entries, %d bytes, %v", entries, size, err)
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Errorf("Clear() = %d, %v; want 3", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("hit after Clear")
	}
	if entries, _, _ := c.Usage(); entries != 0 {
		t.Errorf("Usage() after Clear = %d entries", entries)
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	if err != nil || dir != filepath.Join("/tmp/xdg", "calostack") {
		t.Errorf("DefaultDir() = %q, %v", dir, err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	g1 := k.GeometryKey("abc", GeometryKeyOpts{})
	g2 := k.GeometryKey("abc", GeometryKeyOpts{Permissive: true})
	if g1 == g2 {
		t.Error("permissive builds share a key with strict builds")
	}
	if !strings.HasPrefix(g1, "geometry:") || g1 != k.GeometryKey("abc", GeometryKeyOpts{}) {
		t.Errorf("GeometryKey unexpected: %s", g1)
	}

	a1 := k.ArtifactKey("abc", ArtifactKeyOpts{Format: "svg", Kind: "stack"})
	a2 := k.ArtifactKey("abc", ArtifactKeyOpts{Format: "svg", Kind: "hierarchy"})
	if a1 == a2 || !strings.HasPrefix(a1, "artifact:") {
		t.Errorf("ArtifactKey unexpected: %s %s", a1, a2)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "prod:")

	want := "prod:" + inner.GeometryKey("abc", GeometryKeyOpts{})
	if got := scoped.GeometryKey("abc", GeometryKeyOpts{}); got != want {
		t.Errorf("GeometryKey = %s, want %s", got, want)
	}
	if got := NewScopedKeyer(nil, "x:").ArtifactKey("h", ArtifactKeyOpts{}); !strings.HasPrefix(got, "x:artifact:") {
		t.Errorf("nil inner keyer: %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrUnavailable)
	if !IsRetryable(err) || !errors.Is(err, ErrUnavailable) {
		t.Errorf("wrapped error lost: %v", err)
	}
	if err.Error() != ErrUnavailable.Error() {
		t.Errorf("message changed: %s", err)
	}
	if IsRetryable(ErrCorrupt) {
		t.Error("plain error reported retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	saved := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = saved }()
	ctx := context.Background()

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"success", 0, nil, 1, false},
		{"permanent", 5, ErrCorrupt, 1, true},
		{"transient", 1, Retryable(ErrUnavailable), 2, false},
		{"exhausted", 5, Retryable(ErrUnavailable), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error { return Retryable(ErrUnavailable) })
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1", MaxRetries: -1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache error = %v, want ErrUnavailable", err)
	}
	if _, err := NewRedisCache(ctx, RedisConfig{URL: "http://nope"}); err == nil {
		t.Error("bad URL accepted")
	}

	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	defer c.Close()
	_, hit, err := c.Get(ctx, "k")
	if hit || !IsRetryable(err) || !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get = %v, %v; want retryable ErrUnavailable", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); !IsRetryable(err) {
		t.Errorf("Set error = %v, want retryable", err)
	}
}
