package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
	"github.com/BrightBuddy/brightbuddy-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const backupInterval = 10 * time.Minute // 定时备份频率

const (
	// 脏集合：自上次备份以来发生过写入的文档，按类型分三个Set
	DirtySubscriptionsKey = "backup:dirty:subscriptions" // 成员为userID
	DirtyUsagesKey        = "backup:dirty:usages"        // 成员为userID|date
	DirtyProfilesKey      = "backup:dirty:profiles"      // 成员为userID
)

const dbWriteRetries = 3

// MarkSubscriptionDirty 把某用户的订阅标记为待快照。失败只打印日志，
// 最坏情况是这次变更晚一个周期才落盘。
func MarkSubscriptionDirty(ctx context.Context, userID string) {
	if err := database.RDB.SAdd(ctx, DirtySubscriptionsKey, userID).Err(); err != nil {
		fmt.Printf("标记订阅脏数据失败 (用户 %s): %v\n", userID, err)
	}
}

// MarkUsageDirty 把某用户某天的用量标记为待快照。
func MarkUsageDirty(ctx context.Context, userID, date string) {
	if err := database.RDB.SAdd(ctx, DirtyUsagesKey, userID+"|"+date).Err(); err != nil {
		fmt.Printf("标记用量脏数据失败 (用户 %s): %v\n", userID, err)
	}
}

// MarkProfileDirty 把某用户的成就档案标记为待快照。
func MarkProfileDirty(ctx context.Context, userID string) {
	if err := database.RDB.SAdd(ctx, DirtyProfilesKey, userID).Err(); err != nil {
		fmt.Printf("标记成就档案脏数据失败 (用户 %s): %v\n", userID, err)
	}
}

// StartBackupScheduler 启动一个后台Goroutine来定期执行数据库备份
// 它接收一个lifecycle.Handle来管理其生命周期
func StartBackupScheduler(handle *lifecycle.Handle, store storage.Store) {
	defer handle.Close() // 确保在退出时通知管理器
	fmt.Println("数据备份调度器已启动。")

	for {
		// 使用可中断的休眠来代替ticker。
		// 这使得整个循环可以在收到停机信号时立刻从休眠中唤醒并退出。
		if err := handle.Sleep(backupInterval); err != nil {
			fmt.Printf("备份调度器: 休眠被中断，正在关闭... (%v)\n", err)
			return
		}

		if !database.IsRedisHealthy() {
			fmt.Println("备份调度器: 检测到Redis不可用，跳过本次备份。")
			continue
		}

		fmt.Println("备份调度器: 正在执行定时备份...")
		if err := SnapshotDirtyDocuments(handle.Ctx(), store); err != nil {
			// 如果错误是由于停机信号导致的，则静默退出
			if err != context.Canceled && err != context.DeadlineExceeded {
				fmt.Printf("备份调度器错误: 执行快照备份失败: %v\n", err)
			}
		} else {
			fmt.Println("备份调度器: 快照备份成功。")
		}
	}
}

// SnapshotDirtyDocuments 把所有被标记为脏的文档从存储快照到SQLite。
// 每个脏集合先RENAME到processing键再消费，期间的新写入会进入
// 下一轮的脏集合，不会丢失。
func SnapshotDirtyDocuments(ctx context.Context, store storage.Store) error {
	select {
	case <-ctx.Done():
		return ctx.Err() // 如果已收到信号，则放弃操作
	default:
	}

	subs, err := drainDirtySet(ctx, DirtySubscriptionsKey)
	if err != nil {
		return err
	}
	usages, err := drainDirtySet(ctx, DirtyUsagesKey)
	if err != nil {
		return err
	}
	profiles, err := drainDirtySet(ctx, DirtyProfilesKey)
	if err != nil {
		return err
	}

	if len(subs) == 0 && len(usages) == 0 && len(profiles) == 0 {
		return nil
	}

	// 先从存储读出全部文档，再在一个SQLite事务里落盘
	subDocs := make([]freemium.Subscription, 0, len(subs))
	for _, userID := range subs {
		var sub freemium.Subscription
		if err := store.Get(ctx, freemium.SubscriptionKey(userID), &sub); err != nil {
			fmt.Printf("备份警告: 读取用户 %s 的订阅失败，跳过: %v\n", userID, err)
			continue
		}
		subDocs = append(subDocs, sub)
	}

	usageDocs := make([]freemium.DailyUsage, 0, len(usages))
	for _, member := range usages {
		parts := strings.SplitN(member, "|", 2)
		if len(parts) != 2 {
			continue
		}
		var usage freemium.DailyUsage
		if err := store.Get(ctx, freemium.DailyUsageKey(parts[0], parts[1]), &usage); err != nil {
			fmt.Printf("备份警告: 读取用户 %s 在 %s 的用量失败，跳过: %v\n", parts[0], parts[1], err)
			continue
		}
		usageDocs = append(usageDocs, usage)
	}

	profileDocs := make([]achievement.Profile, 0, len(profiles))
	for _, userID := range profiles {
		var profile achievement.Profile
		if err := store.Get(ctx, achievement.ProfileKey(userID), &profile); err != nil {
			fmt.Printf("备份警告: 读取用户 %s 的成就档案失败，跳过: %v\n", userID, err)
			continue
		}
		profileDocs = append(profileDocs, profile)
	}

	select {
	case <-ctx.Done():
		return ctx.Err() // 如果在读取存储后收到了信号，则放弃写入
	default:
	}

	writeTx := func() error {
		return database.DB.Transaction(func(tx *gorm.DB) error {
			for _, sub := range subDocs {
				if err := freemium.UpsertSubscriptionSnapshot(tx, sub); err != nil {
					return err
				}
			}
			for _, usage := range usageDocs {
				if err := freemium.UpsertDailyUsageSnapshot(tx, usage); err != nil {
					return err
				}
			}
			for _, profile := range profileDocs {
				if err := achievement.UpsertProfileSnapshot(tx, profile); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for i := 0; i < dbWriteRetries; i++ {
		err = writeTx()
		if err == nil {
			return nil
		}
		if !database.IsRetryableError(err) {
			break
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	return fmt.Errorf("快照写入SQLite失败: %w", err)
}

// drainDirtySet 原子地取走一个脏集合的全部成员。
func drainDirtySet(ctx context.Context, key string) ([]string, error) {
	processingKey := key + ":processing"

	// 上一轮崩溃可能留下processing键，先把它合并回来
	if err := database.RDB.SUnionStore(ctx, key, key, processingKey).Err(); err != nil {
		return nil, fmt.Errorf("合并遗留脏集合 %s 失败: %w", key, err)
	}
	database.RDB.Del(ctx, processingKey)

	err := database.RDB.Rename(ctx, key, processingKey).Err()
	if err == redis.Nil || (err != nil && strings.Contains(err.Error(), "no such key")) {
		return nil, nil // 集合为空
	}
	if err != nil {
		return nil, fmt.Errorf("转移脏集合 %s 失败: %w", key, err)
	}

	members, err := database.RDB.SMembers(ctx, processingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("读取脏集合 %s 失败: %w", processingKey, err)
	}
	database.RDB.Del(ctx, processingKey)
	return members, nil
}
