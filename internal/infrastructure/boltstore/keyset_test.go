package boltstore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/volunteers/internal/auth"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jwks.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	if _, _, err := store.Load(ctx); !errors.Is(err, auth.ErrCacheMiss) {
		t.Fatalf("expected cache miss on an empty store, got %v", err)
	}

	fetchedAt := time.Date(2020, 4, 27, 12, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, []byte(`{"keys":[{"kid":"a"}]}`), fetchedAt); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	raw, at, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(raw) != `{"keys":[{"kid":"a"}]}` {
		t.Errorf("unexpected payload %s", raw)
	}
	if !at.Equal(fetchedAt) {
		t.Errorf("expected fetched at %s, got %s", fetchedAt, at)
	}
}

func TestStoreFeedsCachedSource(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jwks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	// A snapshot written well before the ttl still serves while the provider is down.
	if err := store.Save(ctx, rsaKeySet(t, "snap"), time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	source := auth.NewCachedSource(failingFetcher{}, store, time.Hour, nil)
	set, err := source.KeySet(ctx)
	if err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if !set.Has("snap") {
		t.Errorf("expected key from the snapshot, set holds %d keys", set.Len())
	}
}

func rsaKeySet(t *testing.T, kid string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw, err := json.Marshal(map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	if err != nil {
		t.Fatalf("marshal key set: %v", err)
	}
	return raw
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context) ([]byte, error) {
	return nil, errors.New("offline")
}
