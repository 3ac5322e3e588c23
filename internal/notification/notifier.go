package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// Notifier 接收成就解锁通知。和分析一样是尽力而为的旁路。
type Notifier interface {
	PushUnlock(ctx context.Context, userID string, notice UnlockNotice)
}

// UnlockNotice 是一条待投递的成就解锁通知。
type UnlockNotice struct {
	AchievementID string    `json:"achievementId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Points        int       `json:"points"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// PendingKey 返回某用户待投递通知列表的Redis键名。
func PendingKey(userID string) string {
	return "notifications:pending:" + userID
}

// maxPendingNotices 限制单个用户待投递队列的长度
const maxPendingNotices = 50

// Queue 是Notifier的生产实现：通知进入用户的Redis待投递队列，
// 客户端下次轮询时一次性取走。
type Queue struct{}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) PushUnlock(ctx context.Context, userID string, notice UnlockNotice) {
	raw, err := json.Marshal(notice)
	if err != nil {
		fmt.Printf("解锁通知序列化失败: %v\n", err)
		return
	}

	pipe := database.RDB.Pipeline()
	pipe.RPush(ctx, PendingKey(userID), raw)
	pipe.LTrim(ctx, PendingKey(userID), -maxPendingNotices, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		fmt.Printf("解锁通知写入Redis失败: %v\n", err)
	}
}

// Drain 取走并清空某用户的全部待投递通知。
func (q *Queue) Drain(ctx context.Context, userID string) ([]UnlockNotice, error) {
	key := PendingKey(userID)

	var raws []string
	err := database.RDB.Watch(ctx, func(tx *redis.Tx) error {
		var err error
		raws, err = tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// 并发追加导致冲突，这次先不取，下次轮询再来
		return []UnlockNotice{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取待投递通知失败: %w", err)
	}

	notices := make([]UnlockNotice, 0, len(raws))
	for _, raw := range raws {
		var n UnlockNotice
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			fmt.Printf("待投递通知反序列化失败，丢弃: %v\n", err)
			continue
		}
		notices = append(notices, n)
	}
	return notices, nil
}
