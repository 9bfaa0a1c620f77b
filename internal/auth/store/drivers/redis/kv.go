package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for the Redis connection.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultIOTimeout   = 5 * time.Second
	DefaultOpTimeout   = 2 * time.Second
)

// Config selects and tunes the Redis connection. URL wins over the
// individual fields when set.
type Config struct {
	URL      string
	Host     string
	Port     int
	DB       int
	Password string
	TLS      bool

	DialTimeout time.Duration
	IOTimeout   time.Duration
	OpTimeout   time.Duration
	PoolSize    int
}

// Options translates c into go-redis options.
func (c Config) Options() (*redis.Options, error) {
	var opts *redis.Options
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			DB:       c.DB,
			Password: c.Password,
		}
		if c.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: c.Host}
		}
	}

	opts.DialTimeout = orDefault(c.DialTimeout, DefaultDialTimeout)
	opts.ReadTimeout = orDefault(c.IOTimeout, DefaultIOTimeout)
	opts.WriteTimeout = opts.ReadTimeout
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	return opts, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// KV implements store.KV on a pooled go-redis client.
type KV struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

var _ store.KV = (*KV)(nil)

// New builds a client from cfg. It does not dial; call Ping to check the
// connection.
func New(cfg Config) (*KV, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return NewFromClient(redis.NewClient(opts), cfg.OpTimeout), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client redis.UniversalClient, opTimeout time.Duration) *KV {
	return &KV{client: client, opTimeout: orDefault(opTimeout, DefaultOpTimeout)}
}

func (k *KV) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, k.opTimeout)
}

func mapErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	return err
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	val, err := k.client.Get(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return val, nil
}

func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	return k.client.Set(ctx, key, value, max(ttl, 0)).Err()
}

func (k *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	return k.client.SetNX(ctx, key, value, max(ttl, 0)).Result()
}

func (k *KV) GetDel(ctx context.Context, key string) (string, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	val, err := k.client.GetDel(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return val, nil
}

var delIfEqual = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (k *KV) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	n, err := delIfEqual.Run(ctx, k.client, []string{key}, value).Int()
	if err != nil {
		return false, mapErr(err)
	}
	return n == 1, nil
}

func (k *KV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := k.bound(ctx)
	defer cancel()

	return k.client.Del(ctx, keys...).Err()
}

func (k *KV) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	n, err := k.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (k *KV) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	d, err := k.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// PTTL answers -2 for a missing key and -1 for one without expiry.
	switch d {
	case -2:
		return 0, store.ErrNotFound
	case -1:
		return store.NoExpiry, nil
	}
	return d, nil
}

func (k *KV) Ping(ctx context.Context) error {
	ctx, cancel := k.bound(ctx)
	defer cancel()

	return k.client.Ping(ctx).Err()
}

func (k *KV) Close() error {
	return k.client.Close()
}
