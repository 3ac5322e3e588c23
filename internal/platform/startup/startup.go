package startup

import (
	"context"
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/activity"
	"github.com/BrightBuddy/brightbuddy-backend/internal/analytics"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication(ledger *freemium.Service, engine *achievement.Engine) error {
	fmt.Println("开始应用首次初始化...")

	if err := user.PrimeCachedDB(); err != nil {
		return err
	}
	if err := freemium.PrimeDB(); err != nil {
		return err
	}
	if err := achievement.PrimeDB(); err != nil {
		return err
	}
	if err := analytics.PrimeDB(); err != nil {
		return err
	}
	if err := activity.PrimeDB(); err != nil {
		return err
	}

	if err := warmup(ledger, engine); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// warmup 把SQLite里的快照数据恢复进存储
func warmup(ledger *freemium.Service, engine *achievement.Engine) error {
	if err := user.WarmupCache(); err != nil {
		return err
	}

	restored, err := ledger.RestoreSnapshots(context.Background(), database.DB)
	if err != nil {
		return fmt.Errorf("恢复订阅/用量快照失败: %w", err)
	}
	fmt.Printf("已从SQLite恢复 %d 份订阅/用量文档。\n", restored)

	restored, err = engine.RestoreSnapshots(context.Background(), database.DB)
	if err != nil {
		return fmt.Errorf("恢复成就档案快照失败: %w", err)
	}
	fmt.Printf("已从SQLite恢复 %d 份成就档案。\n", restored)

	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数。
// Redis重启后其中的实时文档会丢失，这里用最近一次快照整体回填。
func RebuildCache(ledger *freemium.Service, engine *achievement.Engine) error {
	fmt.Println("开始缓存热重建...")

	if err := warmup(ledger, engine); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}
