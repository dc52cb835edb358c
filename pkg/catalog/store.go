package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Store holds snapshot bytes by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Missing is returned by Store.Get for absent keys.
var Missing = errors.New("snapshot missing")

// FSStore keeps snapshots as files in a directory.
type FSStore string

func (f FSStore) getPath(key string) string {
	return filepath.Join(string(f), key)
}

func (f FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.getPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, Missing
	}
	if err != nil {
		return nil, errs.IO("read", f.getPath(key), err)
	}
	return data, nil
}

func (f FSStore) Set(ctx context.Context, key string, data []byte) error {
	if err := os.MkdirAll(string(f), 0o755); err != nil {
		return errs.IO("mkdir", string(f), err)
	}
	target := f.getPath(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.IO("write", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return errs.IO("rename", target, err)
	}
	return nil
}

const (
	REDIS_KEY    = "hscardtools-%s"
	REDIS_EXPIRY = 24 * time.Hour
)

// RedisStore keeps snapshots as expiring Redis keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store on client. A zero ttl uses a day.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = REDIS_EXPIRY
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf(REDIS_KEY, id)
	data, err := r.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return nil, Missing
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(REDIS_KEY, id)
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Cached returns the catalog of root from store when a snapshot with the current
// fingerprint exists, and otherwise builds one and stores it. Store failures are
// logged; only build failures are returned.
func Cached(ctx context.Context, store Store, root string, passes []Pass, opts ...Option) (*Catalog, error) {
	cfg := newConfig(opts)
	fp, err := Fingerprint(root, passes)
	if err != nil {
		return nil, err
	}
	key := SnapshotKey(fp)
	logger := cfg.log.With().Str("key", key).Logger()

	data, err := store.Get(ctx, key)
	switch {
	case err == nil:
		c, got, err := Unmarshal(data)
		if err == nil && got == fp {
			c.root = root
			logger.Debug().Int("objects", c.Len()).Msg("catalog loaded from snapshot")
			return c, nil
		}
		if err == nil {
			err = fmt.Errorf("fingerprint %016x, want %016x", got, fp)
		}
		logger.Warn().Err(err).Msg("discarding snapshot")
	case errors.Is(err, Missing):
		logger.Debug().Msg("no snapshot")
	default:
		logger.Warn().Err(err).Msg("snapshot store unavailable")
	}

	c, err := Build(ctx, root, passes, opts...)
	if err != nil {
		return nil, err
	}
	if data, err = Marshal(c, fp); err != nil {
		logger.Warn().Err(err).Msg("encode snapshot")
		return c, nil
	}
	if err := store.Set(ctx, key, data); err != nil {
		logger.Warn().Err(err).Msg("save snapshot")
	}
	return c, nil
}
