package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get(ctx, "npm:left-pad"); err != nil || ok {
		t.Fatalf("Get before Set = ok=%v err=%v, want miss", ok, err)
	}
	if err := c.Set(ctx, "npm:left-pad", []byte(`{"latest":"1.3.0"}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Get(ctx, "npm:left-pad")
	if err != nil || !ok {
		t.Fatalf("Get after Set = ok=%v err=%v", ok, err)
	}
	if string(data) != `{"latest":"1.3.0"}` {
		t.Errorf("data = %s", data)
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "npm:stale", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "npm:stale"); err != nil || ok {
		t.Errorf("expired entry = ok=%v err=%v, want miss", ok, err)
	}
	// The expired file is gone after the miss.
	h := Hash("npm:stale")
	if _, err := os.Stat(filepath.Join(c.Dir(), h[:2], h+".json")); !os.IsNotExist(err) {
		t.Errorf("expired entry not removed: %v", err)
	}
}

func TestFileCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("zero-ttl entry missing")
	}
}

func TestFileCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := Hash("npm:bad")
	dir := filepath.Join(c.Dir(), h[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, h+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "npm:bad"); err != nil || ok {
		t.Errorf("corrupt entry = ok=%v err=%v, want miss", ok, err)
	}
}

func TestFileCache_DeleteAndClear(t *testing.T) {
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
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("re-delete = %v, want nil", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("deleted entry still present")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("cleared entry still present")
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = NullCache{}
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Errorf("NullCache.Get = ok=%v err=%v, want miss", ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestKeyType(t *testing.T) {
	cases := map[string]string{
		"npm:left-pad":    "npm",
		"npm:@scope/name": "npm",
		"unprefixed":      "default",
		":leading-colon":  "default",
		"meta:npm:nested": "meta",
	}
	for key, want := range cases {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}
