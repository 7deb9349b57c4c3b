package redisstore

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix  = "session-client:"
	defaultTimeout = 2 * time.Second
)

var _ credentials.BatchStore = (*Store)(nil)

// Store keeps credentials in Redis under a key prefix. Record writes and
// clears run in MULTI/EXEC so other readers of the same keys never see a
// partial group.
type Store struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

type Option func(*Store)

// WithTimeout bounds each Redis round trip.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(client redis.UniversalClient, prefix string, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	s := &Store{client: client, prefix: prefix, timeout: defaultTimeout}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return errors.Wrap(err, "[redisstore] set")
	}
	return nil
}

func (s *Store) SetMany(values map[string]string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "[redisstore] set many")
	}
	return nil
}

func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[redisstore] get")
	}
	return val, true, nil
}

// Clear deletes keys, or every key under the prefix when none are given.
func (s *Store) Clear(keys ...string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	var full []string
	if len(keys) == 0 {
		iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			full = append(full, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return errors.Wrap(err, "[redisstore] scan")
		}
	} else {
		for _, k := range keys {
			full = append(full, s.key(k))
		}
	}
	if len(full) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full...)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "[redisstore] clear")
	}
	return nil
}
