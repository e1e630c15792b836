package db

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/greenpoints/greenledger/logx"
)

// RedisOptions selects the Redis server and logical database.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Namespace is prepended to every key so several ledgers can share a db
	Namespace string
}

// RedisProvider implements DatabaseProvider for Redis
type RedisProvider struct {
	client    *redis.Client
	namespace string
}

// NewRedisProvider creates a new Redis provider
func NewRedisProvider(opts RedisOptions) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisProvider(client, opts.Namespace)
}

func newRedisProvider(client *redis.Client, namespace string) (*RedisProvider, error) {
	ctx := context.Background()

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	logx.Info("REDIS", fmt.Sprintf("Connected to %s db %d", client.Options().Addr, client.Options().DB))
	return &RedisProvider{
		client:    client,
		namespace: namespace,
	}, nil
}

func (p *RedisProvider) key(key []byte) string {
	return p.namespace + string(key)
}

func (p *RedisProvider) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := p.client.Get(ctx, p.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Return nil for not found, consistent with interface
		}
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return value, nil
}

// GetBatch retrieves multiple values by keys with a single MGET
func (p *RedisProvider) GetBatch(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = p.key(k)
	}
	values, err := p.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis mget")
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		result[string(keys[i])] = []byte(s)
	}
	return result, nil
}

func (p *RedisProvider) Delete(ctx context.Context, key []byte) error {
	return errors.Wrapf(p.client.Del(ctx, p.key(key)).Err(), "redis del %s", key)
}

// Close closes the database connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a new batch for atomic operations. The batch is sent as a
// MULTI/EXEC transaction so a commit is all or nothing.
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		provider: p,
		pipe:     p.client.TxPipeline(),
	}
}

// RedisBatch implements DatabaseBatch for Redis
type RedisBatch struct {
	provider *RedisProvider
	pipe     redis.Pipeliner
}

// Put queues a SET. The command context is only used by hooks; the
// transaction runs under the context given to Write.
func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(context.Background(), b.provider.key(key), value, 0)
}

func (b *RedisBatch) Len() int {
	return b.pipe.Len()
}

func (b *RedisBatch) Write(ctx context.Context) error {
	_, err := b.pipe.Exec(ctx)
	return errors.Wrap(err, "redis exec")
}

func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.provider.client.TxPipeline()
}

// Close releases batch resources
func (b *RedisBatch) Close() error {
	b.pipe.Discard()
	return nil
}
