package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackendTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles", "alice.json")

	first := NewStore(NewFileBackend(path))
	if err := first.Set(ctx, SlotPrimary, Credential{Token: "tok", User: testUser()}); err != nil {
		t.Fatalf("set primary failed: %v", err)
	}
	if err := first.Set(ctx, SlotAdmin, Credential{Token: "admin"}); err != nil {
		t.Fatalf("set admin failed: %v", err)
	}

	second := NewStore(NewFileBackend(path))
	cred, ok, err := second.Get(ctx, SlotPrimary)
	if err != nil || !ok || cred.Token != "tok" {
		t.Fatalf("expected persisted primary credential, got %+v ok=%v err=%v", cred, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat profile failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 profile file, got %o", perm)
	}
}

func TestFileBackendCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{{{"), 0o600); err != nil {
		t.Fatalf("seed corrupt file failed: %v", err)
	}

	store := NewStore(NewFileBackend(path))
	if _, _, err := store.Get(ctx, SlotAdmin); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable for corrupt file, got %v", err)
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("clear on corrupt file failed: %v", err)
	}
	if err := store.Set(ctx, SlotAdmin, Credential{Token: "fresh"}); err != nil {
		t.Fatalf("set after corrupt file failed: %v", err)
	}
	cred, ok, err := store.Get(ctx, SlotAdmin)
	if err != nil || !ok || cred.Token != "fresh" {
		t.Fatalf("expected repaired profile, got %+v ok=%v err=%v", cred, ok, err)
	}
}

func TestRedisBackendRoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedisBackendTest(t)

	store := NewStore(NewRedisBackend(rdb, "cg", "p1", time.Minute))
	if err := store.Set(ctx, SlotPrimary, Credential{Token: "tok", User: testUser()}); err != nil {
		t.Fatalf("set primary failed: %v", err)
	}

	if !mr.Exists("cg:p1:token") || !mr.Exists("cg:p1:user") {
		t.Fatalf("expected prefixed keys, have %v", mr.Keys())
	}
	if ttl := mr.TTL("cg:p1:token"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := store.Get(ctx, SlotPrimary); ok || err != nil {
		t.Fatalf("expected expired profile to read absent, ok=%v err=%v", ok, err)
	}
}

func TestRedisProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedisBackendTest(t)
	provider := NewRedisProvider(rdb, "cg", 0)

	a, err := provider.Store("a")
	if err != nil {
		t.Fatalf("store a failed: %v", err)
	}
	b, err := provider.Store("b")
	if err != nil {
		t.Fatalf("store b failed: %v", err)
	}

	_ = a.Set(ctx, SlotAdmin, Credential{Token: "admin-a"})
	if _, ok, _ := b.Get(ctx, SlotAdmin); ok {
		t.Fatal("profile b must not see profile a's admin token")
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedisBackendTest(t)
	store := NewStore(NewRedisBackend(rdb, "cg", "p1", 0))

	mr.Close()

	if _, _, err := store.Get(ctx, SlotAdmin); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestProvidersRejectInvalidProfiles(t *testing.T) {
	providers := map[string]Provider{
		"memory": NewMemoryProvider(),
		"file":   NewFileProvider(t.TempDir()),
	}
	for name, p := range providers {
		for _, profile := range []string{"../escape", "a/b", "..", "has space"} {
			if _, err := p.Store(profile); !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("%s provider: expected ErrInvalidProfile for %q, got %v", name, profile, err)
			}
		}
		if _, err := p.Store(""); err != nil {
			t.Fatalf("%s provider: empty profile should map to default, got %v", name, err)
		}
	}
}

func TestMemoryProviderReturnsSameProfile(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	first, _ := p.Store("visitor")
	_ = first.Set(ctx, SlotAdmin, Credential{Token: "x"})

	second, _ := p.Store("visitor")
	if _, ok, _ := second.Get(ctx, SlotAdmin); !ok {
		t.Fatal("expected the same profile backend to be reused")
	}
}
