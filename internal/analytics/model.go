package analytics

import "time"

// EventRecord 是分析事件在SQLite里的镜像行。
type EventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null"`
	EventType string `gorm:"index;not null"`
	EventData string `gorm:"not null"` // JSON文本
	Timestamp time.Time
}
