package freemium

import (
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// PrimeDB 负责freemium模块的数据库表迁移。
func PrimeDB() error {
	err := database.DB.AutoMigrate(
		&CompletionRecord{},
		&SubscriptionRecord{},
		&DailyUsageRecord{},
	)
	if err != nil {
		return fmt.Errorf("无法迁移freemium表: %w", err)
	}
	fmt.Println("Freemium数据库表迁移成功。")
	return nil
}
