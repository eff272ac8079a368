package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces cache entries in a shared Redis instance.
const keyPrefix = "scrapinium:cache:"

// remoteTier is the optional distributed tier backed by Redis. Entries
// are stored in their compressed form with the algorithm identifier
// prepended so any instance can decode them.
type remoteTier struct {
	client *redis.Client
}

func newRemoteTier(addr, password string, db int) (*remoteTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &remoteTier{client: client}, nil
}

// encodeRemote frames the stored value as "<algo>\n<payload>" so the
// compression algorithm travels with the entry.
func encodeRemote(value []byte, algo string) []byte {
	framed := make([]byte, 0, len(algo)+1+len(value))
	framed = append(framed, algo...)
	framed = append(framed, '\n')
	return append(framed, value...)
}

func decodeRemote(framed []byte) (value []byte, algo string, ok bool) {
	for i, b := range framed {
		if b == '\n' {
			return framed[i+1:], string(framed[:i]), true
		}
		if i > 8 {
			break
		}
	}
	return nil, "", false
}

func (t *remoteTier) get(ctx context.Context, key string) ([]byte, string, bool, error) {
	framed, err := t.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	value, algo, ok := decodeRemote(framed)
	if !ok {
		return nil, "", false, errors.New("cache: malformed remote entry")
	}
	return value, algo, true, nil
}

func (t *remoteTier) set(ctx context.Context, key string, value []byte, algo string, ttl time.Duration) error {
	return t.client.Set(ctx, keyPrefix+key, encodeRemote(value, algo), ttl).Err()
}

func (t *remoteTier) delete(ctx context.Context, key string) error {
	return t.client.Del(ctx, keyPrefix+key).Err()
}

// clear removes only this service's namespace, not the whole database.
func (t *remoteTier) clear(ctx context.Context) (int, error) {
	var removed int
	iter := t.client.Scan(ctx, 0, keyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

func (t *remoteTier) stats(ctx context.Context) map[string]any {
	out := map[string]any{"addr": t.client.Options().Addr}
	if size, err := t.client.DBSize(ctx).Result(); err == nil {
		out["db_keys"] = size
	}
	if err := t.client.Ping(ctx).Err(); err != nil {
		out["status"] = "unreachable"
	} else {
		out["status"] = "ok"
	}
	return out
}

func (t *remoteTier) close() error {
	return t.client.Close()
}
