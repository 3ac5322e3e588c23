package analytics

import (
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// PrimeDB 迁移分析事件表。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&EventRecord{}); err != nil {
		return fmt.Errorf("迁移分析事件表失败: %w", err)
	}
	return nil
}
