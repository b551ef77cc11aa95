package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	redis "github.com/redis/go-redis/v9"
)

const RedisKeyDefault = "transcriber:speakers"

type redisRecord struct {
	Seq     int     `json:"seq"`
	Profile Profile `json:"profile"`
}

// RedisBackend keeps profiles in a single hash keyed by speaker name.
// Saves replace the whole hash within a MULTI/EXEC transaction so readers
// never observe a partially written set.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = RedisKeyDefault
	}
	return &RedisBackend{
		client: client,
		key:    key,
	}
}

func (b *RedisBackend) Load(ctx context.Context) ([]Profile, error) {
	vals, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hash %s: %w", b.key, err)
	}

	records := make([]redisRecord, 0, len(vals))
	for name, val := range vals {
		var rec redisRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return nil, fmt.Errorf("%w: profile %q: %s", ErrCorruptStore, name, err.Error())
		}
		if rec.Profile.Name != name {
			return nil, fmt.Errorf("%w: profile %q stored under %q", ErrCorruptStore, rec.Profile.Name, name)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	var profiles []Profile
	for _, rec := range records {
		profiles = append(profiles, rec.Profile)
	}

	return profiles, nil
}

func (b *RedisBackend) Save(ctx context.Context, profiles []Profile) error {
	values := make([]any, 0, 2*len(profiles))
	for i, p := range profiles {
		data, err := json.Marshal(redisRecord{
			Seq:     i,
			Profile: p,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		values = append(values, p.Name, string(data))
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		if len(values) > 0 {
			pipe.HSet(ctx, b.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write hash %s: %w", b.key, err)
	}

	return nil
}
