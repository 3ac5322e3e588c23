package storage

import (
	"context"
	"errors"
)

// ErrNotFound 表示键下没有文档。调用方用它来惰性创建默认记录；
// 其他任何错误都是真实的I/O故障，不能当作“不存在”处理。
var ErrNotFound = errors.New("storage: key not found")

// ErrConflict 表示乐观写入在重试次数内始终输给并发写入方。
var ErrConflict = errors.New("storage: concurrent update conflict")

// Store 是核心模块面向键值存储的边界，值一律是JSON文档。
//
// 使用中的键：
//
//	subscription:{userId}
//	dailyUsage:{userId}:{YYYY-MM-DD}
//	progress:{userId}:{activityId}
//	achievements:{userId}
type Store interface {
	// Get 把key下的文档解码到out。键不存在时返回ErrNotFound。
	Get(ctx context.Context, key string, out interface{}) error

	// Set 把value以JSON形式写入key，覆盖旧文档。
	Set(ctx context.Context, key string, value interface{}) error

	// Update 对单个键做乐观的读-改-写。fn收到当前文档的原始JSON
	// （不存在时为nil），返回要写入的新文档。只有期间键未被他人
	// 改动时写入才生效，否则整个周期重试。
	Update(ctx context.Context, key string, fn func(raw []byte) (interface{}, error)) error
}
