package user

import (
	"time"

	"gorm.io/gorm"
)

// User 定义了用户在SQLite中的持久化模型。
// 行为数据（订阅、用量、成就）都以用户UUID为键存放在别处，
// 这张表只负责回答“这个UUID是否是我们发出去的”。
type User struct {
	// UUID 是用户的主键，来自客户端Cookie。
	UUID string `gorm:"primarykey;type:varchar(36)"`

	// 部分gorm.Model，由GORM自动管理
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
