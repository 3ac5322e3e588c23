package freemium

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRecord 是订阅文档在SQLite中的快照行。
// Document列保存整份JSON文档，便于原样恢复到Redis；
// Tier/Status列冗余出来只是为了离线查询方便。
type SubscriptionRecord struct {
	UserID    string `gorm:"primarykey;type:varchar(36)"`
	Tier      string `gorm:"type:varchar(16)"`
	Status    string `gorm:"type:varchar(16)"`
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DailyUsageRecord 是当日用量文档在SQLite中的快照行。
type DailyUsageRecord struct {
	ID                  uint   `gorm:"primarykey"`
	UserID              string `gorm:"uniqueIndex:idx_usage_user_date;type:varchar(36)"`
	Date                string `gorm:"uniqueIndex:idx_usage_user_date;type:varchar(10)"`
	ActivitiesCompleted int
	Document            []byte
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UpsertSubscriptionSnapshot 在事务中写入或更新一条订阅快照。
func UpsertSubscriptionSnapshot(tx *gorm.DB, sub Subscription) error {
	doc, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	rec := SubscriptionRecord{
		UserID:   sub.UserID,
		Tier:     string(sub.Tier),
		Status:   string(sub.Status),
		Document: doc,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "status", "document", "updated_at"}),
	}).Create(&rec).Error
}

// UpsertDailyUsageSnapshot 在事务中写入或更新一条用量快照。
func UpsertDailyUsageSnapshot(tx *gorm.DB, usage DailyUsage) error {
	doc, err := json.Marshal(usage)
	if err != nil {
		return err
	}
	rec := DailyUsageRecord{
		UserID:              usage.UserID,
		Date:                usage.Date,
		ActivitiesCompleted: usage.ActivitiesCompleted,
		Document:            doc,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"activities_completed", "document", "updated_at"}),
	}).Create(&rec).Error
}

// RestoreSnapshots 把SQLite中的快照恢复到存储中（Redis重建时使用）。
// 订阅全量恢复；用量只恢复今天的记录，过去的日期不会再被读写。
func (s *Service) RestoreSnapshots(ctx context.Context, db *gorm.DB) (int, error) {
	restored := 0

	var subs []SubscriptionRecord
	if err := db.Find(&subs).Error; err != nil {
		return 0, err
	}
	for _, rec := range subs {
		var sub Subscription
		if err := json.Unmarshal(rec.Document, &sub); err != nil {
			continue // 损坏的快照行跳过，不阻塞整体恢复
		}
		if err := s.store.Set(ctx, SubscriptionKey(sub.UserID), sub); err != nil {
			return restored, err
		}
		restored++
	}

	var usages []DailyUsageRecord
	if err := db.Where("date = ?", s.Today()).Find(&usages).Error; err != nil {
		return restored, err
	}
	for _, rec := range usages {
		var usage DailyUsage
		if err := json.Unmarshal(rec.Document, &usage); err != nil {
			continue
		}
		if err := s.store.Set(ctx, DailyUsageKey(usage.UserID, usage.Date), usage); err != nil {
			return restored, err
		}
		restored++
	}

	return restored, nil
}
