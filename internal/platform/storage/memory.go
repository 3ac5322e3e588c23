package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore 是Store接口的内存实现，用于测试中替换Redis。
// 所有操作在同一把互斥锁下完成，因此Update天然是原子的。
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailNextWrite 置为true时，下一次Set/Update会返回注入的错误，
	// 用于测试存储写入失败时的传播路径。
	FailNextWrite bool

	// FailSetPrefix 非空时，键名带该前缀的Set会返回注入的错误。
	// 用于让多步写入在指定的一步失败。
	FailSetPrefix string
}

// NewMemoryStore 创建一个空的MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextWrite {
		s.FailNextWrite = false
		return fmt.Errorf("storage: injected write failure for %s", key)
	}
	if s.FailSetPrefix != "" && strings.HasPrefix(key, s.FailSetPrefix) {
		return fmt.Errorf("storage: injected write failure for %s", key)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, fn func(raw []byte) (interface{}, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextWrite {
		s.FailNextWrite = false
		return fmt.Errorf("storage: injected write failure for %s", key)
	}

	raw := s.data[key] // 不存在时为nil，与Redis实现保持一致
	next, err := fn(raw)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return err
	}
	s.data[key] = encoded
	return nil
}

// Len 返回当前存储的文档数量，仅测试使用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
