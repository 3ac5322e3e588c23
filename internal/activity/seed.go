package activity

import (
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"gorm.io/gorm/clause"
)

// defaultCatalog 是内置的活动目录。
// 表为空时用它初始化，已有数据时按ActivityID幂等更新。
var defaultCatalog = []Activity{
	{ActivityID: "math-counting-1", Title: "数数小能手", Subject: "Math", Difficulty: "easy", Type: "lesson", IsPremium: false, EstimatedTime: 10},
	{ActivityID: "math-addition-1", Title: "加法入门", Subject: "Math", Difficulty: "easy", Type: "quiz", IsPremium: false, EstimatedTime: 15},
	{ActivityID: "math-multiplication-1", Title: "乘法挑战", Subject: "Math", Difficulty: "medium", Type: "quiz", IsPremium: true, EstimatedTime: 20},
	{ActivityID: "science-animals-1", Title: "动物世界", Subject: "Science", Difficulty: "easy", Type: "lesson", IsPremium: false, EstimatedTime: 12},
	{ActivityID: "science-plants-1", Title: "植物的秘密", Subject: "Science", Difficulty: "medium", Type: "lesson", IsPremium: false, EstimatedTime: 15},
	{ActivityID: "science-space-1", Title: "太空探险", Subject: "Science", Difficulty: "hard", Type: "game", IsPremium: true, EstimatedTime: 25},
	{ActivityID: "reading-phonics-1", Title: "拼读基础", Subject: "Reading", Difficulty: "easy", Type: "lesson", IsPremium: false, EstimatedTime: 10},
	{ActivityID: "reading-story-1", Title: "故事阅读", Subject: "Reading", Difficulty: "medium", Type: "lesson", IsPremium: false, EstimatedTime: 20},
	{ActivityID: "writing-letters-1", Title: "字母书写", Subject: "Writing", Difficulty: "easy", Type: "lesson", IsPremium: false, EstimatedTime: 15},
	{ActivityID: "writing-story-1", Title: "小小作家", Subject: "Writing", Difficulty: "hard", Type: "game", IsPremium: true, EstimatedTime: 30},
	{ActivityID: "history-ancient-1", Title: "古代文明", Subject: "History", Difficulty: "medium", Type: "lesson", IsPremium: false, EstimatedTime: 18},
	{ActivityID: "art-colors-1", Title: "色彩启蒙", Subject: "Art", Difficulty: "easy", Type: "game", IsPremium: false, EstimatedTime: 12},
	{ActivityID: "music-rhythm-1", Title: "节奏游戏", Subject: "Music", Difficulty: "easy", Type: "game", IsPremium: false, EstimatedTime: 10},
	{ActivityID: "pe-stretching-1", Title: "伸展运动", Subject: "Physical Education", Difficulty: "easy", Type: "lesson", IsPremium: false, EstimatedTime: 8},
}

// SeedCatalog 把内置活动目录写入SQLite。
// 使用ON CONFLICT按ActivityID幂等更新，重复启动不会产生脏数据。
func SeedCatalog() error {
	if len(defaultCatalog) == 0 {
		return nil
	}

	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "subject", "difficulty", "type", "is_premium", "estimated_time"}),
	}).Create(&defaultCatalog).Error
	if err != nil {
		return fmt.Errorf("写入活动目录失败: %w", err)
	}
	return nil
}
