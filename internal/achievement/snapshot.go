package achievement

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRecord 是进阶档案在SQLite中的快照行。
// Document保存整份JSON文档；数值列冗余出来便于离线查询。
type ProfileRecord struct {
	UserID        string `gorm:"primarykey;type:varchar(36)"`
	Level         int
	Experience    int
	TotalPoints   int
	UnlockedCount int
	Document      []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpsertProfileSnapshot 在事务中写入或更新一条档案快照。
func UpsertProfileSnapshot(tx *gorm.DB, profile Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	rec := ProfileRecord{
		UserID:        profile.UserID,
		Level:         profile.Level,
		Experience:    profile.Experience,
		TotalPoints:   profile.TotalPoints,
		UnlockedCount: profile.UnlockedCount(),
		Document:      doc,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"level", "experience", "total_points", "unlocked_count", "document", "updated_at"}),
	}).Create(&rec).Error
}

// RestoreSnapshots 把SQLite中的档案快照恢复到存储中（Redis重建时使用）。
func (e *Engine) RestoreSnapshots(ctx context.Context, db *gorm.DB) (int, error) {
	var records []ProfileRecord
	if err := db.Find(&records).Error; err != nil {
		return 0, err
	}

	restored := 0
	for _, rec := range records {
		var profile Profile
		if err := json.Unmarshal(rec.Document, &profile); err != nil {
			continue // 损坏的快照行跳过
		}
		if err := e.store.Set(ctx, ProfileKey(profile.UserID), profile); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}
