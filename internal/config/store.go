package config

import (
	"context"
	"fmt"
	"time"

	"github.com/woozymasta/farpoint/internal/landmask"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OpenStore builds the configured land mask store. It returns a nil store
// for the "none" backend. The returned close function is never nil.
func (c Cache) OpenStore(ctx context.Context) (landmask.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case BackendFile:
		store, err := landmask.NewFileStore(c.Dir)
		if err != nil {
			return nil, noop, err
		}
		log.Debug().Str("dir", c.Dir).Msg("Using file land mask store")
		return store, noop, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", c.Redis.Addr, err)
		}

		log.Debug().
			Str("addr", c.Redis.Addr).
			Int("db", c.Redis.DB).
			Str("prefix", c.Redis.Prefix).
			Msg("Using redis land mask store")
		return landmask.NewRedisStore(client, c.Redis.Prefix), client.Close, nil

	case BackendNone, "":
		return nil, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown cache backend %q", c.Backend)
}
