package user

import (
	"errors"
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProvisionalUser 生成一个临时的、尚未持久化的新用户UUID。
// 这个UUID会被设置到cookie中，首次完成活动时才被正式“激活”。
func CreateProvisionalUser() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// IsValidUUID 检查一个字符串是否是合法的UUID格式。
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsUserActivated 检查一个UUID是否已被激活（存在于持久化系统中）。
// 只查询Redis缓存以获得最高性能。
func IsUserActivated(uuidStr string) (bool, error) {
	if uuidStr == "" {
		return false, nil
	}
	exists, err := database.RDB.SIsMember(database.Ctx, KnownUsersKey, uuidStr).Result()
	if err != nil {
		return false, fmt.Errorf("检查Redis用户缓存时出错: %w", err)
	}
	return exists, nil
}

// ActivateUser 将一个临时UUID正式持久化到数据库和缓存中。
// 如果缓存写入失败，数据库写入会被回滚。
func ActivateUser(uuidStr string) error {
	activated, err := IsUserActivated(uuidStr)
	if err != nil {
		return err
	}
	if activated {
		return nil // 用户已存在，无需操作
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("无法开始数据库事务: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	newUser := User{UUID: uuidStr}
	if err := tx.Create(&newUser).Error; err != nil {
		tx.Rollback()
		// 记录已存在不算真正的错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("无法在SQLite中创建新用户: %w", err)
	}

	if err := database.RDB.SAdd(database.Ctx, KnownUsersKey, uuidStr).Err(); err != nil {
		tx.Rollback()
		return fmt.Errorf("无法将新用户 %s 添加到Redis缓存: %w", uuidStr, err)
	}

	return tx.Commit().Error
}
