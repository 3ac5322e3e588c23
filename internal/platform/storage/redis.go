package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore 是Store接口的生产实现，每个文档对应一个Redis String。
// 并发控制依赖WATCH乐观事务，与投票类系统更新统计数据的方式一致。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore 创建一个RedisStore。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// updateMaxRetry 是Update在WATCH冲突下的最大重试次数
const updateMaxRetry = 5

func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) error {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("无法从Redis读取 %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("无法解析 %s 的JSON文档: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("无法序列化 %s 的JSON文档: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("无法写入Redis %s: %w", key, err)
	}
	return nil
}

// Update 使用WATCH监视key，读出当前文档交给fn，把fn的返回值在事务中写回。
// 如果期间有其他客户端写了同一个key，事务失败并整体重试。
func (s *RedisStore) Update(ctx context.Context, key string, fn func(raw []byte) (interface{}, error)) error {
	txFn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return fmt.Errorf("无法从Redis读取 %s: %w", key, err)
			}
			raw = nil
		}

		next, err := fn(raw)
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("无法序列化 %s 的JSON文档: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < updateMaxRetry; i++ {
		err := s.rdb.Watch(ctx, txFn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // 其他客户端抢先写入，重试
		}
		return err
	}
	return ErrConflict
}
