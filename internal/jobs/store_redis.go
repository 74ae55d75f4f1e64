package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/types"
)

// RedisStore keeps jobs as JSON values. Keys expire after the retention
// period, so EvictBefore only has to sweep what expiry has not caught yet.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

var _ interfaces.JobStore = (*RedisStore)(nil)

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	Retention time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix, opts.Retention), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, retention: retention}
}

func (s *RedisStore) jobKey(id string) string    { return s.prefix + "job:" + id }
func (s *RedisStore) resultKey(id string) string { return s.prefix + "result:" + id }

func (s *RedisStore) Create(ctx context.Context, job *types.JobState) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.jobKey(job.ID), b, s.retention).Err()
}

func (s *RedisStore) Update(ctx context.Context, job *types.JobState) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.jobKey(job.ID), b, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*types.JobState, error) {
	var st types.JobState
	if err := s.getJSON(ctx, s.jobKey(id), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *RedisStore) SaveResult(ctx context.Context, result *types.JobResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.resultKey(result.JobID), b, s.retention).Err()
}

func (s *RedisStore) GetResult(ctx context.Context, id string) (*types.JobResult, error) {
	var r types.JobResult
	if err := s.getJSON(ctx, s.resultKey(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *RedisStore) EvictBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"job:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var st types.JobState
		if err := s.getJSON(ctx, key, &st); err != nil {
			continue
		}
		if !st.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.client.Del(ctx, key, s.resultKey(st.ID)).Err(); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
