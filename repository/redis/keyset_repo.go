package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/volunteers/internal/auth"
)

type keySetEntry struct {
	Raw       json.RawMessage `json:"raw"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// KeySetStore shares the identity provider's key set between replicas.
type KeySetStore struct {
	client redislib.Cmdable
	key    string
	ttl    time.Duration
}

var _ auth.Store = (*KeySetStore)(nil)

// NewKeySetStore stores the key set under "jwks:<audience>". Entries expire
// after ttl so a dead refresher cannot pin an old key set forever.
func NewKeySetStore(client redislib.Cmdable, audience string, ttl time.Duration) *KeySetStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &KeySetStore{
		client: client,
		key:    "jwks:" + audience,
		ttl:    ttl,
	}
}

func (s *KeySetStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	result, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, time.Time{}, auth.ErrCacheMiss
		}
		return nil, time.Time{}, err
	}

	var entry keySetEntry
	if err := json.Unmarshal(result, &entry); err != nil {
		return nil, time.Time{}, err
	}
	return entry.Raw, entry.FetchedAt, nil
}

func (s *KeySetStore) Save(ctx context.Context, raw []byte, fetchedAt time.Time) error {
	payload, err := json.Marshal(keySetEntry{Raw: raw, FetchedAt: fetchedAt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, s.ttl).Err()
}
