package activity

import (
	"context"
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/backup"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// PrimeDB 迁移活动表并写入内置目录，然后加载内存仓库。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Activity{}); err != nil {
		return fmt.Errorf("迁移活动表失败: %w", err)
	}
	if err := SeedCatalog(); err != nil {
		return err
	}
	return InitializeRepository()
}

// SchedulerMarker 是DirtyMarker的生产实现，直接转发给备份调度器的脏集合。
type SchedulerMarker struct{}

func (SchedulerMarker) MarkSubscriptionDirty(ctx context.Context, userID string) {
	backup.MarkSubscriptionDirty(ctx, userID)
}

func (SchedulerMarker) MarkUsageDirty(ctx context.Context, userID, date string) {
	backup.MarkUsageDirty(ctx, userID, date)
}

func (SchedulerMarker) MarkProfileDirty(ctx context.Context, userID string) {
	backup.MarkProfileDirty(ctx, userID)
}
