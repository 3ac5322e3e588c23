package freemium

import (
	"fmt"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// CompletionRecord 是完成记录在SQLite中的镜像行。
// 核心的配额判断只依赖Redis里的文档；这张表负责历史列表、
// 周期统计和连续天数这类需要按前缀/时间范围检索的查询。
type CompletionRecord struct {
	ID          uint   `gorm:"primarykey"`
	UserID      string `gorm:"index;type:varchar(36)"`
	ActivityID  string `gorm:"type:varchar(64)"`
	Subject     string `gorm:"type:varchar(64)"`
	Score       *int
	TimeSpent   int
	CompletedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
}

// Stats 是一段时间内的用量统计摘要。
type Stats struct {
	TotalActivities int      `json:"totalActivities"`
	TotalTimeSpent  int      `json:"totalTimeSpent"`
	SubjectsCovered []string `json:"subjectsCovered"`
	AverageScore    int      `json:"averageScore"`
	StreakDays      int      `json:"streakDays"`
}

// History 封装了对完成记录镜像表的访问。
// 单独成类型是为了让编排层在测试中可以替换它。
type History struct{}

// Record 追加一条完成记录镜像。由编排层在账本写入成功后调用。
func (History) Record(event CompletionEvent, completedAt time.Time) error {
	rec := CompletionRecord{
		UserID:      event.UserID,
		ActivityID:  event.ActivityID,
		Subject:     event.Subject,
		Score:       event.Score,
		TimeSpent:   event.TimeSpent,
		CompletedAt: completedAt,
	}
	if err := database.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("无法写入完成记录镜像: %w", err)
	}
	return nil
}

// Recent 返回用户最近的完成记录，按完成时间倒序。
func (History) Recent(userID string, limit int) ([]CompletionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []CompletionRecord
	err := database.DB.
		Where("user_id = ?", userID).
		Order("completed_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取完成历史: %w", err)
	}
	return records, nil
}

// PeriodStats 汇总最近一周或一月的用量统计。
func (h History) PeriodStats(userID string, period string, now time.Time) (Stats, error) {
	periodStart := now.AddDate(0, -1, 0)
	if period == "week" {
		periodStart = now.AddDate(0, 0, -7)
	}

	var records []CompletionRecord
	err := database.DB.
		Where("user_id = ? AND completed_at >= ?", userID, periodStart).
		Find(&records).Error
	if err != nil {
		return Stats{}, fmt.Errorf("无法读取周期统计: %w", err)
	}

	stats := Stats{SubjectsCovered: []string{}}
	scoreSum, scored := 0, 0
	seen := make(map[string]bool)
	for _, rec := range records {
		stats.TotalActivities++
		stats.TotalTimeSpent += rec.TimeSpent
		if rec.Subject != "" && !seen[rec.Subject] {
			seen[rec.Subject] = true
			stats.SubjectsCovered = append(stats.SubjectsCovered, rec.Subject)
		}
		if rec.Score != nil {
			scoreSum += *rec.Score
			scored++
		}
	}
	if scored > 0 {
		stats.AverageScore = (scoreSum + scored/2) / scored
	}

	streak, err := h.CurrentStreak(userID, now)
	if err != nil {
		return Stats{}, err
	}
	stats.StreakDays = streak

	return stats, nil
}

// streakLookbackDays 限制连续天数回溯的范围
const streakLookbackDays = 30

// CurrentStreak 计算截至now（含当天）的连续学习天数。
// 天的边界同配额一样使用UTC日历日。
func (History) CurrentStreak(userID string, now time.Time) (int, error) {
	since := now.AddDate(0, 0, -streakLookbackDays)

	var dates []string
	err := database.DB.Model(&CompletionRecord{}).
		Where("user_id = ? AND completed_at >= ?", userID, since).
		Distinct("strftime('%Y-%m-%d', completed_at)").
		Pluck("strftime('%Y-%m-%d', completed_at)", &dates).Error
	if err != nil {
		return 0, fmt.Errorf("无法读取连续天数: %w", err)
	}

	return ConsecutiveDays(dates, now), nil
}

// ConsecutiveDays 从today开始往前数，统计dates中连续出现的UTC日历日数量。
// dates的顺序无关紧要；today当天没有记录时连续天数为0。
func ConsecutiveDays(dates []string, now time.Time) int {
	active := make(map[string]bool, len(dates))
	for _, d := range dates {
		active[d] = true
	}

	streak := 0
	day := now.UTC()
	for i := 0; i < streakLookbackDays; i++ {
		if !active[day.Format("2006-01-02")] {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
