package landmask

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per row: field = longitude microdegrees,
// value = "1" for land, "0" for water.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. An empty prefix defaults to "landmask".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "landmask"
	}

	return &RedisStore{client: client, prefix: prefix}
}

// RowKey returns the hash key of a row.
func (s *RedisStore) RowKey(step float64, lat int32) string {
	return s.prefix + ":" + StepTag(step) + ":" + strconv.FormatInt(int64(lat), 10)
}

// LoadRow reads the row hash. An absent key yields ErrRowNotFound.
func (s *RedisStore) LoadRow(ctx context.Context, step float64, lat int32) (map[int32]bool, error) {
	key := s.RowKey(step, lat)

	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrRowNotFound
	}

	cells := make(map[int32]bool, len(vals))
	for field, v := range vals {
		lon, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("row %s: bad field %q: %w", key, field, err)
		}
		cells[int32(lon)] = v == "1"
	}

	return cells, nil
}

// SaveRow replaces the row hash inside a MULTI/EXEC transaction.
func (s *RedisStore) SaveRow(ctx context.Context, step float64, lat int32, cells map[int32]bool) error {
	key := s.RowKey(step, lat)

	fields := make(map[string]interface{}, len(cells))
	for lon, land := range cells {
		v := "0"
		if land {
			v = "1"
		}
		fields[strconv.FormatInt(int64(lon), 10)] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})

	return err
}
