package achievement

import (
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// PrimeDB 负责achievement模块的数据库表迁移。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&ProfileRecord{}); err != nil {
		return fmt.Errorf("无法迁移achievement表: %w", err)
	}
	fmt.Println("Achievement数据库表迁移成功。")
	return nil
}
